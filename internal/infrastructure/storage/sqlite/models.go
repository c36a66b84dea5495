package sqlite

import "time"

// SnippetModel maps to the "snippets" table
type SnippetModel struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	Markup    string    `gorm:"type:text"`
	Style     string    `gorm:"type:text"`
	Script    string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (SnippetModel) TableName() string { return "snippets" }

// PreferencesModel maps to the single-row "preferences" table
type PreferencesModel struct {
	ID        uint `gorm:"primaryKey"`
	DarkMode  bool
	Layout    string `gorm:"not null"`
	UpdatedAt time.Time
}

func (PreferencesModel) TableName() string { return "preferences" }
