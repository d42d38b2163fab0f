package entities

import "time"

type BookStatus string

const (
	BookStatusToRead    BookStatus = "to-read"
	BookStatusReading   BookStatus = "reading"
	BookStatusCompleted BookStatus = "completed"
)

// Valid reports whether the status is one of the known reading states.
func (s BookStatus) Valid() bool {
	switch s {
	case BookStatusToRead, BookStatusReading, BookStatusCompleted:
		return true
	}
	return false
}

// Book is one row per physical or virtual book owned by exactly one user.
//
// Books live in a single flat table with a user_id owner column, so every
// repository operation verifies the stored owner rather than relying on
// per-user namespacing in the schema.
type Book struct {
	ID     string     `gorm:"primaryKey;size:36" json:"id"`
	UserID string     `gorm:"index;size:36" json:"userId"`
	Title  string     `gorm:"index;size:512" json:"title"`
	Author string     `gorm:"index;size:256" json:"author"`
	Status BookStatus `gorm:"index;size:20;default:'to-read'" json:"status"`

	Genre       string `gorm:"size:100" json:"genre,omitempty"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	// Cover URIs are always fully-qualified remote URLs once persisted.
	// Local device paths are resolved by the upload pipeline before (or as
	// a best-effort follow-up to) the record write and never stored here.
	FrontCoverURI string `gorm:"size:2048" json:"frontCoverUri,omitempty"`
	BackCoverURI  string `gorm:"size:2048" json:"backCoverUri,omitempty"`

	// Lending state. When IsLent is false the three fields below are NULL,
	// never left over from a previous lending episode.
	IsLent           bool       `gorm:"default:false" json:"isLent"`
	LentTo           *string    `gorm:"size:256" json:"lentTo,omitempty"`
	LentAt           *time.Time `json:"lentAt,omitempty"`
	ExpectedReturnAt *string    `gorm:"size:10" json:"expectedReturnAt,omitempty"` // YYYY-MM-DD

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `gorm:"index" json:"updatedAt"`
}
