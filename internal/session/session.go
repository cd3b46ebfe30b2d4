// Package session holds per-shopper state: cohort, cart, and browsing history. It is
// passed explicitly to the search engine rather than read from ambient state.
package session

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownCohort is returned for cohort names outside the cohort table.
	ErrUnknownCohort = errors.New("unknown cohort")
	// ErrInvalidQuantity is returned for cart quantities outside 1..MaxQuantity.
	ErrInvalidQuantity = fmt.Errorf("quantity must be between 1 and %d", MaxQuantity)
)

const (
	// MaxHistory bounds the view and purchase histories; older entries are dropped first.
	MaxHistory = 50
	// MaxQuantity bounds one cart line.
	MaxQuantity = 99
)

// CartItem is one line of a cart.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Session is a shopper's state. Values returned by Store are copies.
type Session struct {
	ID              string     `json:"id"`
	Cohort          string     `json:"cohort"`
	Cart            []CartItem `json:"cart"`
	ViewHistory     []string   `json:"view_history"`
	PurchaseHistory []string   `json:"purchase_history"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CartProductIDs returns the ids of the products in the cart.
func (s *Session) CartProductIDs() []string {
	ids := make([]string, len(s.Cart))
	for i, item := range s.Cart {
		ids[i] = item.ProductID
	}
	return ids
}

func (s *Session) clone() *Session {
	cp := *s
	cp.Cart = append([]CartItem(nil), s.Cart...)
	cp.ViewHistory = append([]string(nil), s.ViewHistory...)
	cp.PurchaseHistory = append([]string(nil), s.PurchaseHistory...)
	return &cp
}

// Store is an in-memory session store.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	rng      *rand.Rand
	now      func() time.Time
}

// NewStore creates a session store. rng picks the cohort of new sessions; nil means a
// time-seeded source.
func NewStore(rng *rand.Rand) *Store {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Store{
		sessions: make(map[string]*Session),
		rng:      rng,
		now:      time.Now,
	}
}

// Create starts a session. An empty cohort picks one at random.
func (s *Store) Create(cohort string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cohort == "" {
		cohort = randomCohort(s.rng)
	} else if _, err := LookupCohort(cohort); err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Cohort:    cohort,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sess.ID] = sess
	return sess.clone(), nil
}

// Get returns a copy of the session.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	return sess.clone(), nil
}

func (s *Store) getLocked(id string) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Store) update(id string, fn func(*Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = s.now()
	return sess.clone(), nil
}

// AddToCart adds quantity of a product, merging with an existing line. A line never
// holds more than MaxQuantity; an add that would exceed it leaves the cart unchanged.
func (s *Store) AddToCart(id, productID string, quantity int) (*Session, error) {
	if quantity < 1 || quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	return s.update(id, func(sess *Session) error {
		for i := range sess.Cart {
			if sess.Cart[i].ProductID == productID {
				if sess.Cart[i].Quantity > MaxQuantity-quantity {
					return ErrInvalidQuantity
				}
				sess.Cart[i].Quantity += quantity
				return nil
			}
		}
		sess.Cart = append(sess.Cart, CartItem{ProductID: productID, Quantity: quantity})
		return nil
	})
}

// RemoveFromCart removes a product's cart line. Removing an absent product is a no-op.
func (s *Store) RemoveFromCart(id, productID string) (*Session, error) {
	return s.update(id, func(sess *Session) error {
		for i := range sess.Cart {
			if sess.Cart[i].ProductID == productID {
				sess.Cart = append(sess.Cart[:i], sess.Cart[i+1:]...)
				break
			}
		}
		return nil
	})
}

// RecordView appends a product to the view history, moving a repeat view to the end.
func (s *Store) RecordView(id, productID string) (*Session, error) {
	return s.update(id, func(sess *Session) error {
		sess.ViewHistory = appendRecent(sess.ViewHistory, productID)
		return nil
	})
}

// RecordPurchase moves the cart into the purchase history and empties the cart. When
// productIDs are given only those are recorded and removed from the cart.
func (s *Store) RecordPurchase(id string, productIDs ...string) (*Session, error) {
	return s.update(id, func(sess *Session) error {
		if len(productIDs) == 0 {
			productIDs = sess.CartProductIDs()
		}
		bought := make(map[string]bool, len(productIDs))
		for _, pid := range productIDs {
			bought[pid] = true
			sess.PurchaseHistory = appendRecent(sess.PurchaseHistory, pid)
		}
		kept := sess.Cart[:0]
		for _, item := range sess.Cart {
			if !bought[item.ProductID] {
				kept = append(kept, item)
			}
		}
		sess.Cart = kept
		return nil
	})
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.getLocked(id); err != nil {
		return err
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func appendRecent(list []string, id string) []string {
	for i, v := range list {
		if v == id {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	list = append(list, id)
	if len(list) > MaxHistory {
		list = list[len(list)-MaxHistory:]
	}
	return list
}
