package models

// ClanMember mirrors display data from the identity service, keyed by Discord
// ID. The engine only reads it as render context for announcements; the
// identity sync worker keeps it fresh.
type ClanMember struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	DiscordID  string `gorm:"uniqueIndex;not null" json:"discord_id"`
	Username   string `json:"username"`
	AvatarHash string `json:"avatar_hash"`
	RSN        string `json:"rsn"`

	Timestamps
}
