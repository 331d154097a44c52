// models/game.go
package models

import (
	"time"
)

const (
	ProtocolCookieSigned = "cookie-signed"
	ProtocolOAuthToken   = "oauth-token"
)

// Game is one row of the static per-game registry. Seeded at startup,
// read-only afterwards; adapters share these by value and never write back.
type Game struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"uniqueIndex;not null"` // e.g. "genshin", "endfield"
	DisplayName string `json:"display_name" gorm:"not null"`
	// cookie-signed | oauth-token; selects the adapter
	ProtocolFamily string `json:"protocol_family" gorm:"not null"`
	GameID         int    `json:"game_id"` // upstream numeric id (HoYoLAB record card)

	// 📡 Endpoints
	InfoURL  string `json:"info_url"`  // status probe
	HomeURL  string `json:"home_url"`  // monthly award list (cookie family)
	SignURL  string `json:"sign_url"`  // claim
	OAuthURL string `json:"oauth_url" gorm:"column:oauth_url"` // token exchange base (oauth family)
	CredURL  string `json:"cred_url"`  // cred generation endpoint (oauth family)

	// Protocol constants; fixed upstream values, never derived
	ActID          string `json:"act_id"`           // campaign id (cookie family)
	SignGameHeader string `json:"sign_game_header"` // x-rpc-signgame value
	DSSalt         string `json:"ds_salt"`          // DS signature salt (cookie family)
	AppCode        string `json:"app_code"`         // OAuth grant appCode (oauth family)

	// 💬 User-facing text
	SuccessMessage string `json:"success_message"`
	SignedMessage  string `json:"signed_message"`
	AuthorName     string `json:"author_name"`
	IconURL        string `json:"icon_url"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
