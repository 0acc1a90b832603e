package models

import "time"

// TimeLayout is the ISO-8601 layout used for every stored timestamp.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t the way createdAt/updatedAt are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Collection names of the shared document.
const (
	CollectionUsers    = "users"
	CollectionProjects = "projects"
	CollectionSections = "sections"
	CollectionTasks    = "tasks"
	CollectionComments = "comments"
)

// Collections lists the collections every document starts with, parents first.
var Collections = []string{
	CollectionUsers,
	CollectionProjects,
	CollectionSections,
	CollectionTasks,
	CollectionComments,
}

type Project struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Accessibility bool   `json:"accessibility"`
	Owner         string `json:"owner"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

// Section orders within its project by Order, starting at zero.
type Section struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Order     int    `json:"order"`
	ProjectID string `json:"projectId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Order       int     `json:"order"`
	DueDate     *string `json:"dueDate"`
	Description *string `json:"description"`
	SectionID   string  `json:"sectionId"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type Comment struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	TaskID    string `json:"taskId"`
	AuthorID  string `json:"authorId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}
