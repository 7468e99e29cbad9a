package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Deck struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:512" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Deck) TableName() string {
	return "decks"
}

type NoteType struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"uniqueIndex;size:512" json:"name"`
	CSS       string          `gorm:"type:text" json:"css"`
	Cloze     bool            `json:"cloze"`
	Fields    []NoteTypeField `gorm:"foreignKey:NoteTypeID;constraint:OnDelete:CASCADE" json:"fields"`
	Templates []CardTemplate  `gorm:"foreignKey:NoteTypeID;constraint:OnDelete:CASCADE" json:"templates"`
	CreatedAt time.Time       `json:"created_at"`
}

func (NoteType) TableName() string {
	return "note_types"
}

// FieldNames returns the field names in order.
func (nt *NoteType) FieldNames() []string {
	names := make([]string, len(nt.Fields))
	for i, f := range nt.Fields {
		names[i] = f.Name
	}
	return names
}

type NoteTypeField struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	NoteTypeID uint   `gorm:"index" json:"note_type_id"`
	Ord        int    `json:"ord"`
	Name       string `gorm:"size:256" json:"name"`
}

func (NoteTypeField) TableName() string {
	return "note_type_fields"
}

type CardTemplate struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	NoteTypeID uint   `gorm:"index" json:"note_type_id"`
	Ord        int    `json:"ord"`
	Name       string `gorm:"size:256" json:"name"`
	Front      string `gorm:"type:text" json:"front"`
	Back       string `gorm:"type:text" json:"back"`
}

func (CardTemplate) TableName() string {
	return "card_templates"
}

// FieldValues maps field names to their HTML content. It is stored as a JSON
// object.
type FieldValues map[string]string

func (f FieldValues) Value() (driver.Value, error) {
	if f == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(f))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *FieldValues) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*f = FieldValues{}
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("unsupported field values type %T", src)
	}
	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("failed to decode field values: %w", err)
	}
	*f = m
	return nil
}

type Note struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	GUID       string      `gorm:"uniqueIndex;size:36" json:"guid"`
	NoteTypeID uint        `gorm:"index" json:"note_type_id"`
	DeckID     uint        `gorm:"index" json:"deck_id"`
	Fields     FieldValues `gorm:"type:text" json:"fields"`
	Tags       []Tag       `gorm:"many2many:note_tags;" json:"tags,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (Note) TableName() string {
	return "notes"
}

type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:256" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Tag) TableName() string {
	return "tags"
}

// MediaFile records a file written to the media folder and the SHA-1 of its
// content.
type MediaFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:255" json:"name"`
	SHA1      string    `gorm:"index;size:40" json:"sha1"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

func (MediaFile) TableName() string {
	return "media_files"
}
