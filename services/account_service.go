// services/account_service.go
package services

import (
	"errors"
	"strings"

	"daily-checkin-system/models"
	"daily-checkin-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type AccountService struct {
	DB     *gorm.DB
	Cipher *utils.CredentialCipher
}

func NewAccountService(db *gorm.DB, cipher *utils.CredentialCipher) *AccountService {
	return &AccountService{DB: db, Cipher: cipher}
}

type accountRequest struct {
	OwnerID    string `json:"owner_id"`
	GameName   string `json:"game_name"`
	Label      string `json:"label"`
	Credential string `json:"credential"`
}

// CreateAccount registers a new account. The label is slugified so the
// (owner, game, label) tuple stays stable regardless of input casing or
// unicode; the credential is encrypted before it touches the database.
func (s *AccountService) CreateAccount(c *fiber.Ctx) error {
	var req accountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	req.GameName = strings.TrimSpace(req.GameName)
	if req.OwnerID == "" || req.GameName == "" || strings.TrimSpace(req.Credential) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "owner_id, game_name and credential are required"})
	}

	var game models.Game
	if err := s.DB.Where("name = ? AND is_active = ?", req.GameName, true).First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown game: " + req.GameName})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to look up game"})
	}

	label := slug.Make(req.Label)
	if label == "" {
		label = "main"
	}

	encrypted, err := s.Cipher.Encrypt(strings.TrimSpace(req.Credential))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to encrypt credential"})
	}

	account := models.Account{
		ID:         uuid.NewString(),
		OwnerID:    req.OwnerID,
		GameName:   req.GameName,
		Label:      label,
		Credential: encrypted,
		IsActive:   true,
	}
	if err := s.DB.Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "an account with this label already exists for this game"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create account"})
	}
	return c.Status(fiber.StatusCreated).JSON(account)
}

// UpdateCredential replaces the stored credential of one account, e.g.
// after a cookie or token expired.
func (s *AccountService) UpdateCredential(c *fiber.Ctx) error {
	var req struct {
		Credential string `json:"credential"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Credential) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "credential is required"})
	}

	encrypted, err := s.Cipher.Encrypt(strings.TrimSpace(req.Credential))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to encrypt credential"})
	}

	result := s.DB.Model(&models.Account{}).
		Where("id = ?", c.Params("id")).
		Updates(map[string]any{"credential": encrypted, "is_active": true})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update account"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
	}
	return c.JSON(fiber.Map{"updated": true})
}

// ListAccounts returns an owner's accounts. Credentials never leave the
// database; the model hides the column from serialization.
func (s *AccountService) ListAccounts(c *fiber.Ctx) error {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "owner_id query parameter is required"})
	}
	var accounts []models.Account
	if err := s.DB.Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&accounts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list accounts"})
	}
	return c.JSON(fiber.Map{"accounts": accounts})
}

func (s *AccountService) DeleteAccount(c *fiber.Ctx) error {
	result := s.DB.Where("id = ?", c.Params("id")).Delete(&models.Account{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete account"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
	}
	return c.JSON(fiber.Map{"deleted": true})
}
