package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserLoginModel struct {
	ID        string    `gorm:"primaryKey"`
	Email     string    `gorm:"not null;index"`
	LoginTime time.Time `gorm:"not null;index"`
}

func (UserLoginModel) TableName() string { return "user_logins" }

type FileUploadModel struct {
	ID         string    `gorm:"primaryKey"`
	Email      string    `gorm:"not null;index"`
	Filename   string    `gorm:"not null"`
	FilePath   string    `gorm:"not null"`
	UploadTime time.Time `gorm:"not null;index"`
	Metadata   datatypes.JSON
}

func (FileUploadModel) TableName() string { return "file_uploads" }
