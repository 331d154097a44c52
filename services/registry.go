// services/registry.go
package services

import (
	"context"
	"fmt"
	"log"

	"daily-checkin-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const hoyolabDSSalt = "6s25p5ox5y14umn1p61aqyyvbvvl3lrt" // overseas web salt; fixed upstream constant

// DefaultGames is the supported game set seeded into the registry at
// startup. Endpoint URLs, act IDs, salts and app codes are fixed upstream
// values.
func DefaultGames() []models.Game {
	return []models.Game{
		{
			Name:           "genshin",
			DisplayName:    "Genshin Impact",
			ProtocolFamily: models.ProtocolCookieSigned,
			GameID:         2,
			InfoURL:        "https://sg-hk4e-api.hoyolab.com/event/sol/info",
			HomeURL:        "https://sg-hk4e-api.hoyolab.com/event/sol/home",
			SignURL:        "https://sg-hk4e-api.hoyolab.com/event/sol/sign",
			ActID:          "e202102251931481",
			SignGameHeader: "hk4e",
			DSSalt:         hoyolabDSSalt,
			SuccessMessage: "Daily check-in complete! See you tomorrow, Traveler.",
			SignedMessage:  "Today's reward was already claimed for this account.",
			AuthorName:     "Paimon",
			IconURL:        "https://fastcdn.hoyoverse.com/static-resource-v2/2023/11/08/9db76fb146f82c045bc276956f86e047_6878380451593228482.png",
			IsActive:       true,
		},
		{
			Name:           "starrail",
			DisplayName:    "Honkai: Star Rail",
			ProtocolFamily: models.ProtocolCookieSigned,
			GameID:         6,
			InfoURL:        "https://sg-public-api.hoyolab.com/event/luna/os/info",
			HomeURL:        "https://sg-public-api.hoyolab.com/event/luna/os/home",
			SignURL:        "https://sg-public-api.hoyolab.com/event/luna/os/sign",
			ActID:          "e202303301540311",
			SignGameHeader: "hkrpg",
			DSSalt:         hoyolabDSSalt,
			SuccessMessage: "Daily check-in complete! The Express rolls on.",
			SignedMessage:  "Today's reward was already claimed for this account.",
			AuthorName:     "Pom-Pom",
			IconURL:        "https://fastcdn.hoyoverse.com/static-resource-v2/2024/04/12/74330de1ee71ada37bbba7b72775c9d3_1883015313866544428.png",
			IsActive:       true,
		},
		{
			Name:           "zenless",
			DisplayName:    "Zenless Zone Zero",
			ProtocolFamily: models.ProtocolCookieSigned,
			GameID:         8,
			InfoURL:        "https://sg-act-nap-api.hoyolab.com/event/luna/zzz/os/info",
			HomeURL:        "https://sg-act-nap-api.hoyolab.com/event/luna/zzz/os/home",
			SignURL:        "https://sg-act-nap-api.hoyolab.com/event/luna/zzz/os/sign",
			ActID:          "e202406031448091",
			SignGameHeader: "zzz",
			DSSalt:         hoyolabDSSalt,
			SuccessMessage: "Daily check-in complete! New Eridu thanks you, Proxy.",
			SignedMessage:  "Today's reward was already claimed for this account.",
			AuthorName:     "Eous",
			IconURL:        "https://fastcdn.hoyoverse.com/static-resource-v2/2024/06/21/a7b444959c1a7b1641b41c4d5a69cdb6_2529271411765959136.png",
			IsActive:       true,
		},
		{
			Name:           "endfield",
			DisplayName:    "Arknights: Endfield",
			ProtocolFamily: models.ProtocolOAuthToken,
			InfoURL:        "https://zonai.skport.com/web/v1/game/endfield/attendance",
			SignURL:        "https://zonai.skport.com/web/v1/game/endfield/attendance",
			CredURL:        "https://zonai.skport.com/web/v1/user/auth/generate_cred_by_code",
			OAuthURL:       "https://as.gryphline.com",
			AppCode:        "6eb76d4e13aa36e6",
			SuccessMessage: "Daily attendance claimed! Endministrator, welcome back.",
			SignedMessage:  "Today's attendance was already claimed for this account.",
			AuthorName:     "Perlica",
			IconURL:        "https://web.hycdn.cn/endfield/official/pic/icon.png",
			IsActive:       true,
		},
	}
}

// SeedGames upserts the supported game set by name. Existing rows get their
// protocol configuration refreshed; accounts referencing them are untouched.
func SeedGames(db *gorm.DB) error {
	for _, game := range DefaultGames() {
		game.ID = uuid.NewString()
		if err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name", "protocol_family", "game_id",
				"info_url", "home_url", "sign_url", "cred_url", "oauth_url",
				"act_id", "sign_game_header", "ds_salt", "app_code",
				"success_message", "signed_message", "author_name", "icon_url",
			}),
		}).Create(&game).Error; err != nil {
			return fmt.Errorf("seeding game %s: %w", game.Name, err)
		}
	}
	log.Printf("[REGISTRY] ✅ Seeded %d game(s)", len(DefaultGames()))
	return nil
}

// LoadRegistry builds the read-only name → config lookup used by a run.
func LoadRegistry(ctx context.Context, store Store) (map[string]models.Game, error) {
	gameRows, err := store.ActiveGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading game registry: %w", err)
	}
	registry := make(map[string]models.Game, len(gameRows))
	for _, game := range gameRows {
		registry[game.Name] = game
	}
	return registry, nil
}
