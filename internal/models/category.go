package models

// Category is a label attached to complaints. Complaints keep a weak
// reference to it: deleting a category nulls Complaint.CategoryID.
type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"type:varchar(100);not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
}
