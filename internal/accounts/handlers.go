package accounts

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/Dasakami/alertme-backend/internal/db"
	"github.com/Dasakami/alertme-backend/internal/notifications"
	"github.com/Dasakami/alertme-backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// smsGateway delivers verification codes. Left nil when SMS is not configured,
// in which case registration still succeeds and the code stays in the table
// for manual verification during development.
var smsGateway notifications.SMSGateway

func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var user User

	err := json.NewDecoder(r.Body).Decode(&user)
	if err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if user.PhoneNumber == "" || user.Password == "" {
		http.Error(w, "Phone number and password are required", http.StatusBadRequest)
		return
	}

	// Check if phone number is taken
	var existing User
	err = db.DB.First(&existing, "phone_number = ?", user.PhoneNumber).Error
	if err == nil {
		http.Error(w, "Phone number already registered", http.StatusConflict)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Server error hashing password", http.StatusInternalServerError)
		return
	}
	user.HashedPassword = string(hashed)
	user.UserID = utils.GenerateUUID()
	user.Password = ""
	user.IsActive = true
	if user.Language == "" {
		user.Language = "ru"
	}

	if err := db.DB.Create(&user).Error; err != nil {
		http.Error(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	sendVerificationCode(r, user.PhoneNumber)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"user_id":      user.UserID,
		"phone_number": user.PhoneNumber,
	})
}

func sendVerificationCode(r *http.Request, phone string) {
	code := generateCode()
	db.DB.Create(&SMSVerification{
		PhoneNumber: phone,
		Code:        code,
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	})
	if smsGateway != nil {
		_ = smsGateway.Send(r.Context(), phone, "AlertMe: код подтверждения "+code)
	}
}

func generateCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64())
}

func VerifyPhoneHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phone_number"`
		Code        string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	var verification SMSVerification
	err := db.DB.Where("phone_number = ? AND code = ? AND is_verified = ?",
		req.PhoneNumber, req.Code, false).
		Order("created_at DESC").First(&verification).Error
	if err != nil {
		http.Error(w, "Invalid verification code", http.StatusBadRequest)
		return
	}
	if verification.ExpiresAt.Before(time.Now()) {
		http.Error(w, "Verification code expired", http.StatusBadRequest)
		return
	}

	db.DB.Model(&verification).Update("is_verified", true)
	db.DB.Model(&User{}).Where("phone_number = ?", req.PhoneNumber).
		Update("is_phone_verified", true)

	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Phone verified")
}

func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds User
	var user User
	var existing Session

	err := json.NewDecoder(r.Body).Decode(&creds)
	if err != nil {
		http.Error(w, "Invalid data", http.StatusBadRequest)
		return
	}

	err = db.DB.First(&user, "phone_number = ?", creds.PhoneNumber).Error
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if !user.IsActive {
		http.Error(w, "Account is deactivated", http.StatusForbidden)
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(creds.Password))
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	sessionID := utils.GenerateUUID()
	http.SetCookie(w, &http.Cookie{
		Name:     "session_id",
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// One session row per user: replace an existing one rather than stacking.
	db.DB.Where("user_id = ?", user.UserID).First(&existing)
	if existing.UserID != "" {
		db.DB.Model(&existing).Updates(Session{
			SessionID: sessionID,
			ExpiresAt: time.Now().Add(72 * time.Hour),
		})
	} else {
		db.DB.Create(&Session{
			SessionID: sessionID,
			UserID:    user.UserID,
			ExpiresAt: time.Now().Add(72 * time.Hour),
		})
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Login successful")
}

func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var session Session

	cookie, err := r.Cookie("session_id")
	if err != nil {
		http.Error(w, "Couldn't find cookie", http.StatusUnauthorized)
		return
	}

	err = db.DB.First(&session, "session_id = ?", cookie.Value).Error
	if err != nil {
		http.Error(w, "Couldn't find session", http.StatusUnauthorized)
		return
	}

	db.DB.Delete(&session)
	http.SetCookie(w, &http.Cookie{
		Name:   "session_id",
		Value:  "",
		MaxAge: 0,
		Path:   "/",
	})

	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Logout successful")
}

func MeHandler(w http.ResponseWriter, r *http.Request) {
	var user User

	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := db.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		http.Error(w, "Couldn't find user", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// UpdateMeHandler mutates the optional profile fields. Phone number and
// premium status are not editable here.
func UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		FirstName        *string `json:"first_name"`
		LastName         *string `json:"last_name"`
		Email            *string `json:"email"`
		TelegramUsername *string `json:"telegram_username"`
		Language         *string `json:"language"`
		FCMToken         *string `json:"fcm_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.TelegramUsername != nil {
		updates["telegram_username"] = *req.TelegramUsername
	}
	if req.Language != nil {
		updates["language"] = *req.Language
	}
	if req.FCMToken != nil {
		updates["fcm_token"] = *req.FCMToken
	}
	if len(updates) == 0 {
		http.Error(w, "Nothing to update", http.StatusBadRequest)
		return
	}

	if err := db.DB.Model(&User{}).Where("user_id = ?", userID).Updates(updates).Error; err != nil {
		http.Error(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}

	var user User
	db.DB.First(&user, "user_id = ?", userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// DeactivateHandler soft-deletes the account; users are never hard-deleted.
func DeactivateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := db.DB.Model(&User{}).Where("user_id = ?", userID).
		Update("is_active", false).Error; err != nil {
		http.Error(w, "Failed to deactivate account", http.StatusInternalServerError)
		return
	}
	db.DB.Where("user_id = ?", userID).Delete(&Session{})

	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Account deactivated")
}
