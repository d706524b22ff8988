package firebase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"banklink/internal/domain/user"
	"banklink/internal/infrastructure/crypto"
)

// UserRepository stores profile documents in a Firestore collection. The
// SSN is encrypted before it is written.
type UserRepository struct {
	col       *firestore.CollectionRef
	encryptor *crypto.Encryptor
}

func NewUserRepository(client *firestore.Client, collection string, encryptor *crypto.Encryptor) *UserRepository {
	return &UserRepository{col: client.Collection(collection), encryptor: encryptor}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) (*user.User, error) {
	ssn, err := r.encryptor.Encrypt(u.SSN)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt ssn: %w", err)
	}

	doc := *u
	doc.SSN = ssn
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.DeviceTokens == nil {
		doc.DeviceTokens = []string{}
	}

	ref := r.col.NewDoc()
	if _, err := ref.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create user document: %w", err)
	}

	created := doc
	created.SSN = u.SSN
	created.DocumentID = ref.ID
	return &created, nil
}

func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*user.User, error) {
	snap, err := r.findByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var u user.User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user document: %w", err)
	}
	u.DocumentID = snap.Ref.ID

	if u.SSN, err = r.encryptor.Decrypt(u.SSN); err != nil {
		return nil, fmt.Errorf("failed to decrypt ssn: %w", err)
	}

	return &u, nil
}

func (r *UserRepository) AddDeviceToken(ctx context.Context, userID, token string) error {
	snap, err := r.findByUserID(ctx, userID)
	if err != nil {
		return err
	}

	_, err = snap.Ref.Update(ctx, []firestore.Update{
		{Path: "deviceTokens", Value: firestore.ArrayUnion(token)},
	})
	if err != nil {
		return fmt.Errorf("failed to add device token: %w", err)
	}

	return nil
}

// RemoveDeviceToken drops token from every profile holding it. Used as the
// messaging token deactivator.
func (r *UserRepository) RemoveDeviceToken(ctx context.Context, token string) error {
	iter := r.col.Where("deviceTokens", "array-contains", token).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to query device token owners: %w", err)
		}

		_, err = snap.Ref.Update(ctx, []firestore.Update{
			{Path: "deviceTokens", Value: firestore.ArrayRemove(token)},
		})
		if err != nil {
			return fmt.Errorf("failed to remove device token: %w", err)
		}
	}
}

func (r *UserRepository) findByUserID(ctx context.Context, userID string) (*firestore.DocumentSnapshot, error) {
	iter := r.col.Where("userId", "==", userID).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return snap, nil
}
