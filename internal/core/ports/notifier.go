package ports

import "github.com/botforge/storefront-admin/internal/core/domain"

// ChangeNotifier fans session changes out to subscribers.
type ChangeNotifier interface {
	Publish(change domain.SessionChange)
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func(domain.SessionChange)) (unsubscribe func())
}
