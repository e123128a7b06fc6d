package subscriptions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPremium(t *testing.T) {
	sub := Subscription{
		Status: SubStatusActive,
		Plan:   Plan{PlanType: PlanPremium},
	}
	assert.True(t, sub.IsPremium())

	sub.Status = SubStatusExpired
	assert.False(t, sub.IsPremium())

	sub.Status = SubStatusActive
	sub.Plan.PlanType = PlanFree
	assert.False(t, sub.IsPremium())
}
