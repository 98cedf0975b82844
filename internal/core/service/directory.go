package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/botforge/storefront-admin/internal/core/domain"
	"github.com/botforge/storefront-admin/internal/core/policy"
	"github.com/botforge/storefront-admin/internal/core/ports"
	"github.com/botforge/storefront-admin/internal/pkg/metrics"
)

// Directory is a read-through snapshot of every identity, served only to
// actors allowed to list the directory.
type Directory struct {
	repo  ports.IdentityRepository
	log   zerolog.Logger
	group singleflight.Group

	mu       sync.Mutex
	snapshot []*domain.Identity
	valid    bool
	// generation increments on every Invalidate so a fetch that raced an
	// invalidation never installs its result.
	generation uint64
}

func NewDirectory(repo ports.IdentityRepository, log zerolog.Logger) *Directory {
	return &Directory{repo: repo, log: log}
}

// ListAll returns every identity, newest first. The policy gate runs before
// any store access.
func (d *Directory) ListAll(ctx context.Context, actor *domain.Identity) ([]*domain.Identity, error) {
	if !policy.CanListDirectory(actor) {
		metrics.PolicyDenialsTotal.WithLabelValues("list_directory").Inc()
		return nil, domain.ErrForbidden
	}

	d.mu.Lock()
	if d.valid {
		out := cloneIdentities(d.snapshot)
		d.mu.Unlock()
		metrics.DirectoryLookupsTotal.WithLabelValues("hit").Inc()
		return out, nil
	}
	gen := d.generation
	d.mu.Unlock()

	metrics.DirectoryLookupsTotal.WithLabelValues("miss").Inc()
	v, err, _ := d.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		return d.fetch(ctx, gen)
	})
	if err != nil {
		return nil, err
	}
	return cloneIdentities(v.([]*domain.Identity)), nil
}

// Invalidate drops the snapshot; the next ListAll refetches.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	d.generation++
	d.valid = false
	d.snapshot = nil
	d.mu.Unlock()
}

func (d *Directory) fetch(ctx context.Context, gen uint64) ([]*domain.Identity, error) {
	start := time.Now()
	list, err := d.repo.List(ctx)
	if errors.Is(err, domain.ErrUnavailable) {
		d.log.Warn().Err(err).Msg("directory fetch unavailable, retrying once")
		list, err = d.repo.List(ctx)
	}
	metrics.DirectoryFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	snapshot := make([]*domain.Identity, 0, len(list))
	for _, identity := range list {
		snapshot = append(snapshot, publicIdentity(identity))
	}
	sortNewestFirst(snapshot)

	d.mu.Lock()
	if d.generation == gen {
		d.snapshot = snapshot
		d.valid = true
	}
	d.mu.Unlock()

	d.log.Debug().Int("count", len(snapshot)).Msg("directory refreshed")
	return snapshot, nil
}

// sortNewestFirst orders by created_at descending, ties by id.
func sortNewestFirst(list []*domain.Identity) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

func cloneIdentities(in []*domain.Identity) []*domain.Identity {
	out := make([]*domain.Identity, len(in))
	for i, identity := range in {
		out[i] = identity.Clone()
	}
	return out
}
