package stripebilling

import (
	"context"
	"fmt"
	"sync"
)

// StaticResolver keeps the user-to-Stripe id mapping in memory. Entries are
// added as accounts are linked during onboarding.
type StaticResolver struct {
	mu            sync.RWMutex
	customers     map[string]string
	subscriptions map[string]string
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		customers:     make(map[string]string),
		subscriptions: make(map[string]string),
	}
}

func (r *StaticResolver) Link(userID, customerID, subscriptionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[userID] = customerID
	r.subscriptions[userID] = subscriptionID
}

func (r *StaticResolver) CustomerID(ctx context.Context, userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.customers[userID]; ok {
		return id, nil
	}
	return "", fmt.Errorf("no stripe customer linked for user %s", userID)
}

func (r *StaticResolver) SubscriptionID(ctx context.Context, userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.subscriptions[userID]; ok {
		return id, nil
	}
	return "", fmt.Errorf("no stripe subscription linked for user %s", userID)
}
