package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
)

const (
	customersCollection = "customers"
	messagesCollection  = "messages"
)

// customerDoc is the Firestore shape of a customer. Memory is left dynamic
// because legacy documents hold a string where newer ones hold an array.
type customerDoc struct {
	DisplayName       string           `firestore:"displayName"`
	Memory            any              `firestore:"memory"`
	HandoverRequested bool             `firestore:"handoverRequested"`
	HandoverReason    string           `firestore:"handoverReason"`
	HandoverAt        time.Time        `firestore:"handoverAt"`
	Cart              *model.CartState `firestore:"cart"`
	CreatedAt         time.Time        `firestore:"createdAt"`
	LastInteractionAt time.Time        `firestore:"lastInteractionAt"`
	MemoryUpdatedAt   time.Time        `firestore:"memoryUpdatedAt"`
}

// FirestoreStore implements Store on Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestoreClient opens a Firestore client. An empty credentialsFile uses
// application default credentials.
func NewFirestoreClient(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

// NewFirestoreStore wraps an open client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client, now: time.Now}
}

func (s *FirestoreStore) customer(id string) *firestore.DocumentRef {
	return s.client.Collection(customersCollection).Doc(id)
}

// GetOrCreate implements ProfileStore.
func (s *FirestoreStore) GetOrCreate(ctx context.Context, customerID, displayName string) (*model.CustomerProfile, error) {
	ref := s.customer(customerID)
	var profile *model.CustomerProfile

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := s.now().UTC()

		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		if snap == nil || !snap.Exists() {
			profile = model.NewCustomerProfile(customerID, displayName, now)
			return tx.Create(ref, map[string]any{
				"displayName":       profile.DisplayName,
				"memory":            []model.PetRecord{},
				"handoverRequested": false,
				"createdAt":         firestore.ServerTimestamp,
				"lastInteractionAt": firestore.ServerTimestamp,
			})
		}

		profile, err = decodeProfile(customerID, snap)
		if err != nil {
			return err
		}
		profile.LastInteractionAt = now

		updates := []firestore.Update{{Path: "lastInteractionAt", Value: firestore.ServerTimestamp}}
		if displayName != "" && displayName != profile.DisplayName {
			profile.DisplayName = displayName
			updates = append(updates, firestore.Update{Path: "displayName", Value: displayName})
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		return nil, fmt.Errorf("get or create customer %s: %w", customerID, err)
	}

	return profile, nil
}

// Get implements ProfileStore.
func (s *FirestoreStore) Get(ctx context.Context, customerID string) (*model.CustomerProfile, error) {
	snap, err := s.customer(customerID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get customer %s: %w", customerID, err)
	}
	return decodeProfile(customerID, snap)
}

// UpdateMemory implements ProfileStore.
func (s *FirestoreStore) UpdateMemory(ctx context.Context, customerID string, pets []model.PetRecord) error {
	if pets == nil {
		pets = []model.PetRecord{}
	}
	return s.update(ctx, customerID, []firestore.Update{
		{Path: "memory", Value: pets},
		{Path: "memoryUpdatedAt", Value: firestore.ServerTimestamp},
	})
}

// SetHandover implements ProfileStore.
func (s *FirestoreStore) SetHandover(ctx context.Context, customerID string, requested bool, reason string) error {
	updates := []firestore.Update{
		{Path: "handoverRequested", Value: requested},
		{Path: "handoverReason", Value: reason},
	}
	if requested {
		updates = append(updates, firestore.Update{Path: "handoverAt", Value: firestore.ServerTimestamp})
	} else {
		updates = append(updates, firestore.Update{Path: "handoverAt", Value: firestore.Delete})
	}
	return s.update(ctx, customerID, updates)
}

// SaveCart implements ProfileStore.
func (s *FirestoreStore) SaveCart(ctx context.Context, customerID string, cart *model.CartState) error {
	if cart == nil {
		return s.update(ctx, customerID, []firestore.Update{{Path: "cart", Value: firestore.Delete}})
	}
	return s.update(ctx, customerID, []firestore.Update{{Path: "cart", Value: cart}})
}

func (s *FirestoreStore) update(ctx context.Context, customerID string, updates []firestore.Update) error {
	if _, err := s.customer(customerID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("update customer %s: %w", customerID, err)
	}
	return nil
}

// Append implements HistoryStore.
func (s *FirestoreStore) Append(ctx context.Context, customerID string, role model.Role, text string) (*model.ChatMessage, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	msg := &model.ChatMessage{ID: id.String(), Role: role, Text: text, Timestamp: s.now().UTC()}
	_, err = s.customer(customerID).Collection(messagesCollection).Doc(msg.ID).Set(ctx, map[string]any{
		"id":        msg.ID,
		"role":      string(role),
		"text":      text,
		"timestamp": firestore.ServerTimestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("append message for %s: %w", customerID, err)
	}
	return msg, nil
}

// Recent implements HistoryStore.
func (s *FirestoreStore) Recent(ctx context.Context, customerID string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		return []model.ChatMessage{}, nil
	}

	snaps, err := s.customer(customerID).Collection(messagesCollection).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", customerID, err)
	}

	msgs := make([]model.ChatMessage, 0, len(snaps))
	for i := len(snaps) - 1; i >= 0; i-- {
		var msg model.ChatMessage
		if err := snaps[i].DataTo(&msg); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", snaps[i].Ref.ID, err)
		}
		if msg.ID == "" {
			msg.ID = snaps[i].Ref.ID
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Ping checks the database is reachable.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	it := s.client.Collection(customersCollection).Limit(1).Documents(ctx)
	defer it.Stop()

	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func decodeProfile(id string, snap *firestore.DocumentSnapshot) (*model.CustomerProfile, error) {
	var doc customerDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode customer %s: %w", id, err)
	}

	mem, err := decodeMemory(doc.Memory)
	if err != nil {
		return nil, fmt.Errorf("decode memory of %s: %w", id, err)
	}

	profile := &model.CustomerProfile{
		ID:                id,
		DisplayName:       doc.DisplayName,
		Memory:            mem,
		HandoverRequested: doc.HandoverRequested,
		HandoverReason:    doc.HandoverReason,
		Cart:              doc.Cart,
		CreatedAt:         doc.CreatedAt,
		LastInteractionAt: doc.LastInteractionAt,
	}
	if !doc.HandoverAt.IsZero() {
		t := doc.HandoverAt
		profile.HandoverAt = &t
	}
	if !doc.MemoryUpdatedAt.IsZero() {
		t := doc.MemoryUpdatedAt
		profile.MemoryUpdatedAt = &t
	}
	if profile.DisplayName == "" {
		profile.DisplayName = model.DefaultDisplayName
	}
	return profile, nil
}

// decodeMemory turns the dynamic memory field into a model.Memory. It is the
// only place that inspects the stored shape.
func decodeMemory(v any) (model.Memory, error) {
	switch val := v.(type) {
	case nil:
		return model.Memory{}, nil
	case string:
		return model.NarrativeMemory(val), nil
	case []any:
		pets := make([]model.PetRecord, 0, len(val))
		for i, item := range val {
			fields, ok := item.(map[string]any)
			if !ok {
				return model.Memory{}, fmt.Errorf("memory entry %d has type %T", i, item)
			}
			pets = append(pets, model.PetRecord{
				Name:        stringField(fields, "name"),
				Species:     stringField(fields, "species"),
				Breed:       stringField(fields, "breed"),
				Age:         stringField(fields, "age"),
				Health:      stringField(fields, "health"),
				Behavior:    stringField(fields, "behavior"),
				Preferences: stringField(fields, "preferences"),
				Notes:       stringField(fields, "notes"),
			})
		}
		return model.StructuredMemory(pets), nil
	default:
		return model.Memory{}, fmt.Errorf("unsupported memory type %T", v)
	}
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return ""
	}
}
