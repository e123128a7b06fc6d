package subscriptions

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Dasakami/alertme-backend/internal/accounts"
	"github.com/Dasakami/alertme-backend/internal/db"
	"github.com/Dasakami/alertme-backend/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListPlans returns the active plan catalog. Public endpoint.
func ListPlans(w http.ResponseWriter, r *http.Request) {
	var plans []Plan
	if err := db.DB.Where("is_active = ?", true).
		Order("price_monthly").Find(&plans).Error; err != nil {
		http.Error(w, "Failed to fetch plans", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(plans)
}

// CurrentSubscription returns the caller's subscription state and reconciles
// the user's premium flag against it, expiring the row if its end date has
// passed. Callers with no row are on the free plan.
func CurrentSubscription(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	now := time.Now()

	var sub Subscription
	err := db.DB.Preload("Plan").Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		db.DB.Model(&accounts.User{}).Where("user_id = ? AND is_premium = ?", userID, true).
			Update("is_premium", false)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"plan":           map[string]string{"plan_type": PlanFree, "name": "Free"},
			"status":         "free",
			"is_premium":     false,
			"days_remaining": 0,
		})
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch subscription", http.StatusInternalServerError)
		return
	}

	if sub.Status == SubStatusActive && !sub.EndDate.After(now) {
		sub.Status = SubStatusExpired
		db.DB.Model(&sub).Update("status", SubStatusExpired)
	}

	isPremium := sub.IsPremium()
	db.DB.Model(&accounts.User{}).Where("user_id = ?", userID).
		Update("is_premium", isPremium)

	daysRemaining := 0
	if sub.Status == SubStatusActive {
		if d := int(sub.EndDate.Sub(now).Hours() / 24); d > 0 {
			daysRemaining = d
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":             sub.ID,
		"plan":           sub.Plan,
		"status":         sub.Status,
		"is_premium":     isPremium,
		"days_remaining": daysRemaining,
		"end_date":       sub.EndDate,
		"payment_period": sub.PaymentPeriod,
		"auto_renew":     sub.AutoRenew,
	})
}

// Subscribe places the caller on a plan, pending payment. An existing
// subscription row is reused so each user keeps exactly one.
func Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req struct {
		PlanType      string `json:"plan_type"`
		PaymentPeriod string `json:"payment_period"`
		PaymentMethod string `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if req.PaymentPeriod == "" {
		req.PaymentPeriod = PeriodMonthly
	}
	if req.PaymentPeriod != PeriodMonthly && req.PaymentPeriod != PeriodYearly {
		http.Error(w, "payment_period must be monthly or yearly", http.StatusBadRequest)
		return
	}

	var plan Plan
	if err := db.DB.Where("plan_type = ? AND is_active = ?", req.PlanType, true).
		First(&plan).Error; err != nil {
		http.Error(w, "Plan not found", http.StatusNotFound)
		return
	}

	start := time.Now()
	end := start.AddDate(0, 1, 0)
	amount := plan.PriceMonthly
	if req.PaymentPeriod == PeriodYearly {
		end = start.AddDate(1, 0, 0)
		amount = plan.PriceYearly
	}

	var sub Subscription
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub = Subscription{UserID: userID}
		} else if err != nil {
			return err
		}

		sub.PlanID = plan.ID
		sub.Status = SubStatusPending
		sub.PaymentPeriod = req.PaymentPeriod
		sub.StartDate = start
		sub.EndDate = end
		sub.AutoRenew = true
		return tx.Save(&sub).Error
	})
	if err != nil {
		http.Error(w, "Failed to create subscription", http.StatusInternalServerError)
		return
	}

	payment := Payment{
		UserID:         userID,
		SubscriptionID: sub.ID,
		Amount:         amount,
		PaymentMethod:  req.PaymentMethod,
		TransactionID:  uuid.NewString(),
		Status:         PaymentPending,
	}
	if err := db.DB.Create(&payment).Error; err != nil {
		http.Error(w, "Failed to create payment", http.StatusInternalServerError)
		return
	}

	sub.Plan = plan
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"subscription": sub,
		"payment":      payment,
	})
}

// ProcessPayment completes a pending payment and activates the subscription
// it belongs to. Stands in for a payment-gateway callback.
func ProcessPayment(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	paymentID := chi.URLParam(r, "payment_id")

	var payment Payment
	if err := db.DB.First(&payment, "id = ? AND user_id = ?", paymentID, userID).Error; err != nil {
		http.Error(w, "Payment not found", http.StatusNotFound)
		return
	}
	if payment.Status != PaymentPending {
		http.Error(w, "Payment already processed", http.StatusBadRequest)
		return
	}

	var sub Subscription
	if err := db.DB.Preload("Plan").First(&sub, "id = ?", payment.SubscriptionID).Error; err != nil {
		http.Error(w, "Subscription not found", http.StatusNotFound)
		return
	}

	now := time.Now()
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&payment).Updates(map[string]interface{}{
			"status":       PaymentCompleted,
			"completed_at": now,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&sub).Update("status", SubStatusActive).Error; err != nil {
			return err
		}
		sub.Status = SubStatusActive
		return tx.Model(&accounts.User{}).Where("user_id = ?", userID).
			Update("is_premium", sub.IsPremium()).Error
	})
	if err != nil {
		http.Error(w, "Failed to process payment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"payment":      payment,
		"subscription": sub,
	})
}

// CancelSubscription turns off auto-renew; access runs until the paid period
// ends.
func CancelSubscription(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var sub Subscription
	if err := db.DB.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		http.Error(w, "Subscription not found", http.StatusNotFound)
		return
	}

	if err := db.DB.Model(&sub).Update("auto_renew", false).Error; err != nil {
		http.Error(w, "Failed to cancel subscription", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"detail":   "Subscription will not renew after current period",
		"end_date": sub.EndDate,
	})
}

// PaymentHistory lists the caller's payments, newest first.
func PaymentHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var payments []Payment
	if err := db.DB.Where("user_id = ?", userID).
		Order("created_at DESC").Find(&payments).Error; err != nil {
		http.Error(w, "Failed to fetch payments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payments)
}
