package specification

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ByFileType struct {
	FileType string
}

func (s ByFileType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("file_type = ?", s.FileType)
}

type PublicOnly struct{}

func (s PublicOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_public = ?", true)
}

// HasTag matches media whose JSON tags array contains the given tag.
type HasTag struct {
	Tag string
}

func (s HasTag) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(datatypes.JSONArrayQuery("tags").Contains(s.Tag))
}
