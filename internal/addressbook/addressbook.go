package addressbook

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/apperror"
	"backend/internal/models"
)

// Book owns the customer's saved delivery addresses, embedded on the
// user document. The profile surface edits through it; checkout only
// asks whether a delivery address belongs to the paying customer.
type Book struct {
	db *mongo.Database
}

func NewBook(db *mongo.Database) *Book {
	return &Book{db: db}
}

// BelongsToCustomer reports whether addressID is one of the customer's
// saved addresses.
func (b *Book) BelongsToCustomer(ctx context.Context, customerID primitive.ObjectID, addressID string) (bool, error) {
	user, err := b.load(ctx, customerID)
	if apperror.IsKind(err, apperror.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return findAddress(user.Addresses, addressID) >= 0, nil
}

// List returns the customer's addresses, never nil.
func (b *Book) List(ctx context.Context, customerID primitive.ObjectID) ([]models.Address, error) {
	user, err := b.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if user.Addresses == nil {
		return []models.Address{}, nil
	}
	return user.Addresses, nil
}

// Add appends a new address and assigns its id. A new default demotes
// every existing entry.
func (b *Book) Add(ctx context.Context, customerID primitive.ObjectID, input models.Address) (models.Address, error) {
	user, err := b.load(ctx, customerID)
	if err != nil {
		return models.Address{}, err
	}

	id, err := newAddressID()
	if err != nil {
		return models.Address{}, err
	}
	input.ID = id

	updated := appendAddress(user.Addresses, normalize(input))
	if err := b.save(ctx, customerID, updated); err != nil {
		return models.Address{}, err
	}
	return updated[len(updated)-1], nil
}

// Update replaces the address in place, keeping its id.
func (b *Book) Update(ctx context.Context, customerID primitive.ObjectID, addressID string, input models.Address) (models.Address, error) {
	user, err := b.load(ctx, customerID)
	if err != nil {
		return models.Address{}, err
	}

	updated, replaced, ok := replaceAddress(user.Addresses, addressID, normalize(input))
	if !ok {
		return models.Address{}, apperror.NotFound("address not found")
	}
	if err := b.save(ctx, customerID, updated); err != nil {
		return models.Address{}, err
	}
	return replaced, nil
}

// Remove deletes the address.
func (b *Book) Remove(ctx context.Context, customerID primitive.ObjectID, addressID string) error {
	user, err := b.load(ctx, customerID)
	if err != nil {
		return err
	}

	updated, ok := removeAddress(user.Addresses, addressID)
	if !ok {
		return apperror.NotFound("address not found")
	}
	return b.save(ctx, customerID, updated)
}

func (b *Book) load(ctx context.Context, customerID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := b.db.Collection("users").FindOne(ctx, bson.M{"_id": customerID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperror.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (b *Book) save(ctx context.Context, customerID primitive.ObjectID, addresses []models.Address) error {
	_, err := b.db.Collection("users").UpdateByID(ctx, customerID, bson.M{
		"$set": bson.M{"addresses": addresses, "updatedAt": time.Now()},
	})
	return err
}

func findAddress(list []models.Address, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// appendAddress adds addr to the list. When addr is the new default,
// every other entry is demoted.
func appendAddress(list []models.Address, addr models.Address) []models.Address {
	out := make([]models.Address, 0, len(list)+1)
	for _, existing := range list {
		if addr.IsDefault {
			existing.IsDefault = false
		}
		out = append(out, existing)
	}
	return append(out, addr)
}

// replaceAddress swaps the entry with the given id for addr, keeping
// the id. Reports whether the id existed.
func replaceAddress(list []models.Address, id string, addr models.Address) ([]models.Address, models.Address, bool) {
	index := findAddress(list, id)
	if index < 0 {
		return list, models.Address{}, false
	}

	out := make([]models.Address, len(list))
	copy(out, list)
	if addr.IsDefault {
		for i := range out {
			out[i].IsDefault = false
		}
	}
	addr.ID = id
	out[index] = addr
	return out, addr, true
}

func removeAddress(list []models.Address, id string) ([]models.Address, bool) {
	index := findAddress(list, id)
	if index < 0 {
		return list, false
	}
	out := make([]models.Address, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...), true
}

func normalize(addr models.Address) models.Address {
	addr.Title = strings.TrimSpace(addr.Title)
	addr.Detail = strings.TrimSpace(addr.Detail)
	addr.Note = strings.TrimSpace(addr.Note)
	return addr
}

// newAddressID returns a random UUIDv4 string. Addresses are embedded
// documents, so they carry their own id rather than a Mongo one.
func newAddressID() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}

	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		buf[0:4],
		buf[4:6],
		buf[6:8],
		buf[8:10],
		buf[10:16],
	), nil
}
