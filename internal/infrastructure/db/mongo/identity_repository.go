package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/botforge/storefront-admin/internal/core/domain"
)

const (
	collectionUsers = "users"
	opTimeout       = 5 * time.Second
)

// IdentityRepository stores identities in the users collection.
type IdentityRepository struct {
	col *mongo.Collection
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{col: db.Collection(collectionUsers)}
}

type identityDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	Role         string    `bson:"role"`
	Banned       bool      `bson:"banned"`
	DiscordID    string    `bson:"discord_id,omitempty"`
	AvatarURL    string    `bson:"avatar_url,omitempty"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toDoc(i *domain.Identity) identityDoc {
	return identityDoc{
		ID:           i.ID,
		Username:     i.Username,
		Email:        i.Email,
		Role:         string(i.Role),
		Banned:       i.Banned,
		DiscordID:    i.DiscordID,
		AvatarURL:    i.AvatarURL,
		PasswordHash: i.PasswordHash,
		CreatedAt:    i.CreatedAt.UTC(),
		UpdatedAt:    i.UpdatedAt.UTC(),
	}
}

func (d identityDoc) toDomain() *domain.Identity {
	return &domain.Identity{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		Role:         domain.Role(d.Role),
		Banned:       d.Banned,
		DiscordID:    d.DiscordID,
		AvatarURL:    d.AvatarURL,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// Create inserts identity. A duplicate username or email is ErrConflict.
func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	doc := toDoc(identity)
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, mapError("insert identity", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *IdentityRepository) FindByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc identityDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapError("find identity", err)
	}
	return doc.toDomain(), nil
}

// List returns every identity, newest first.
func (r *IdentityRepository) List(ctx context.Context) ([]*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, mapError("list identities", err)
	}
	defer cursor.Close(ctx)

	var docs []identityDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError("decode identities", err)
	}

	out := make([]*domain.Identity, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toDomain())
	}
	return out, nil
}

func (r *IdentityRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"role": string(role)})
	if err != nil {
		return 0, mapError("count identities", err)
	}
	return n, nil
}

func (r *IdentityRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	return r.set(ctx, id, bson.M{"role": string(role)})
}

func (r *IdentityRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	return r.set(ctx, id, bson.M{"banned": banned})
}

func (r *IdentityRepository) UpdateProfile(ctx context.Context, id, username, email string) error {
	return r.set(ctx, id, bson.M{"username": username, "email": email})
}

func (r *IdentityRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.set(ctx, id, bson.M{"password_hash": hash})
}

func (r *IdentityRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	return r.set(ctx, id, bson.M{"avatar_url": avatarURL})
}

func (r *IdentityRepository) set(ctx context.Context, id string, fields bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	fields["updated_at"] = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return mapError("update identity", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *IdentityRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError("delete identity", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// EnsureIndexes creates the unique username/email indexes and the listing index.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	}

	if _, err := r.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// mapError translates driver errors into domain errors.
func mapError(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
