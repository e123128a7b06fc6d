package contacts

import (
	"encoding/json"
	"net/http"

	"github.com/Dasakami/alertme-backend/internal/db"
	"github.com/Dasakami/alertme-backend/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ListContacts returns the caller's contacts, primary first.
func ListContacts(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var list []EmergencyContact
	if err := db.DB.Where("user_id = ?", userID).
		Order("is_primary DESC, name").Find(&list).Error; err != nil {
		http.Error(w, "Failed to fetch contacts: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func CreateContact(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var contact EmergencyContact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if contact.Name == "" || contact.PhoneNumber == "" {
		http.Error(w, "Name and phone number are required", http.StatusBadRequest)
		return
	}

	contact.ID = uuid.Nil
	contact.UserID = userID
	contact.IsActive = true

	if err := db.DB.Create(&contact).Error; err != nil {
		http.Error(w, "Failed to create contact", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(contact)
}

func UpdateContact(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	contactID := chi.URLParam(r, "contact_id")

	var contact EmergencyContact
	if err := db.DB.First(&contact, "id = ? AND user_id = ?", contactID, userID).Error; err != nil {
		http.Error(w, "Contact not found", http.StatusNotFound)
		return
	}

	var req struct {
		Name             *string `json:"name"`
		PhoneNumber      *string `json:"phone_number"`
		Email            *string `json:"email"`
		TelegramUsername *string `json:"telegram_username"`
		Relation         *string `json:"relation"`
		IsPrimary        *bool   `json:"is_primary"`
		IsActive         *bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if req.Name != nil {
		contact.Name = *req.Name
	}
	if req.PhoneNumber != nil {
		contact.PhoneNumber = *req.PhoneNumber
	}
	if req.Email != nil {
		contact.Email = *req.Email
	}
	if req.TelegramUsername != nil {
		contact.TelegramUsername = *req.TelegramUsername
	}
	if req.Relation != nil {
		contact.Relation = *req.Relation
	}
	if req.IsPrimary != nil {
		contact.IsPrimary = *req.IsPrimary
	}
	if req.IsActive != nil {
		contact.IsActive = *req.IsActive
	}

	// Save (not Updates) so the primary-clearing hook sees the full row.
	if err := db.DB.Save(&contact).Error; err != nil {
		http.Error(w, "Failed to update contact", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contact)
}

func DeleteContact(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	contactID := chi.URLParam(r, "contact_id")

	result := db.DB.Where("id = ? AND user_id = ?", contactID, userID).
		Delete(&EmergencyContact{})
	if result.Error != nil {
		http.Error(w, "Failed to delete contact", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Contact not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func ListGroups(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var groups []ContactGroup
	if err := db.DB.Preload("Contacts").Where("user_id = ?", userID).
		Order("name").Find(&groups).Error; err != nil {
		http.Error(w, "Failed to fetch groups: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(groups)
}

func CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		ContactIDs  []uuid.UUID `json:"contact_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Group name is required", http.StatusBadRequest)
		return
	}

	group := ContactGroup{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if len(req.ContactIDs) > 0 {
		// Only the caller's own contacts may be grouped.
		if err := db.DB.Where("id IN ? AND user_id = ?", req.ContactIDs, userID).
			Find(&group.Contacts).Error; err != nil {
			http.Error(w, "Failed to resolve contacts", http.StatusInternalServerError)
			return
		}
	}

	if err := db.DB.Create(&group).Error; err != nil {
		http.Error(w, "Failed to create group", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(group)
}

func DeleteGroup(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	groupID := chi.URLParam(r, "group_id")

	result := db.DB.Where("id = ? AND user_id = ?", groupID, userID).Delete(&ContactGroup{})
	if result.Error != nil {
		http.Error(w, "Failed to delete group", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Group not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
