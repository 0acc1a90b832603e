// Package fixtures fabricates a complete mock document: users owning
// projects, split into sections of tasks carrying comments.
package fixtures

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/SergeSyntax/mock-server/internal/auth"
	"github.com/SergeSyntax/mock-server/internal/models"
	"github.com/SergeSyntax/mock-server/internal/store"
)

// Counts is the fan-out of the generated tree.
type Counts struct {
	Users              int
	ProjectsPerUser    int
	SectionsPerProject int
	TasksPerSection    int
	CommentsPerTask    int
}

func DefaultCounts() Counts {
	return Counts{
		Users:              1,
		ProjectsPerUser:    2,
		SectionsPerProject: 7,
		TasksPerSection:    20,
		CommentsPerTask:    2,
	}
}

// Credential is the plaintext login of a generated user.
type Credential struct {
	Email    string
	Password string
}

// Generator builds documents. Email pins the first user's address and
// Password every user's password; empty means random.
type Generator struct {
	Counts   Counts
	Faker    *gofakeit.Faker
	Hasher   auth.Hasher
	Email    string
	Password string
}

func NewGenerator(hasher auth.Hasher, email, password string) *Generator {
	return &Generator{
		Counts:   DefaultCounts(),
		Faker:    gofakeit.New(0),
		Hasher:   hasher,
		Email:    strings.TrimSpace(email),
		Password: password,
	}
}

// Generate returns the document and the credentials of its users, in the
// same order as the users collection.
func (g *Generator) Generate(ctx context.Context) (store.Document, []Credential, error) {
	users, creds, err := g.users(ctx)
	if err != nil {
		return nil, nil, err
	}

	var projects []models.Project
	for _, u := range users {
		for i := 0; i < g.Counts.ProjectsPerUser; i++ {
			projects = append(projects, g.project(u.ID))
		}
	}

	var sections []models.Section
	for _, p := range projects {
		for i := 0; i < g.Counts.SectionsPerProject; i++ {
			sections = append(sections, g.section(p.ID, i))
		}
	}

	var tasks []models.Task
	for _, s := range sections {
		for i := 0; i < g.Counts.TasksPerSection; i++ {
			tasks = append(tasks, g.task(s.ID, i))
		}
	}

	var comments []models.Comment
	for _, t := range tasks {
		for i := 0; i < g.Counts.CommentsPerTask; i++ {
			author := users[g.Faker.IntN(len(users))]
			comments = append(comments, g.comment(t.ID, author.ID))
		}
	}

	doc := store.Document{}
	if err := put(doc, models.CollectionUsers, users); err != nil {
		return nil, nil, err
	}
	if err := put(doc, models.CollectionProjects, projects); err != nil {
		return nil, nil, err
	}
	if err := put(doc, models.CollectionSections, sections); err != nil {
		return nil, nil, err
	}
	if err := put(doc, models.CollectionTasks, tasks); err != nil {
		return nil, nil, err
	}
	if err := put(doc, models.CollectionComments, comments); err != nil {
		return nil, nil, err
	}
	return doc, creds, nil
}

func (g *Generator) users(ctx context.Context) ([]models.User, []Credential, error) {
	if g.Counts.Users < 1 {
		return nil, nil, fmt.Errorf("at least one user is required, got %d", g.Counts.Users)
	}

	users := make([]models.User, 0, g.Counts.Users)
	creds := make([]Credential, 0, g.Counts.Users)
	seen := make(map[string]bool, g.Counts.Users)

	for i := 0; i < g.Counts.Users; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		password := g.Password
		if password == "" {
			password = g.Faker.Password(true, true, true, false, false, 12)
		}
		hash, err := g.Hasher.Hash(password)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to hash password: %w", err)
		}

		name := g.Faker.Username()
		email := ""
		if i == 0 {
			email = g.Email
		}
		for email == "" || seen[email] {
			email = strings.ToLower(strings.TrimSpace(g.Faker.Email()))
		}
		seen[email] = true

		users = append(users, models.User{
			ID:                g.Faker.UUID(),
			Email:             email,
			Password:          hash,
			Name:              &name,
			Role:              g.Faker.RandomString(models.Roles),
			ResetToken:        emptyDigest,
			ResetTokenExpires: models.Timestamp(g.Faker.PastDate()),
		})
		creds = append(creds, Credential{Email: email, Password: password})
	}
	return users, creds, nil
}

// emptyDigest is the sha256 of no input, the reset token of fresh users.
var emptyDigest = func() string {
	sum := sha256.Sum256(nil)
	return hex.EncodeToString(sum[:])
}()

func (g *Generator) project(owner string) models.Project {
	created, updated := g.timestamps()
	return models.Project{
		ID:            g.Faker.UUID(),
		Title:         g.Faker.Company(),
		Accessibility: g.Faker.Bool(),
		Owner:         owner,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}
}

func (g *Generator) section(projectID string, order int) models.Section {
	created, updated := g.timestamps()
	return models.Section{
		ID:        g.Faker.UUID(),
		Title:     g.Faker.ProductCategory(),
		Order:     order,
		ProjectID: projectID,
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

func (g *Generator) task(sectionID string, order int) models.Task {
	created, updated := g.timestamps()
	return models.Task{
		ID:        g.Faker.UUID(),
		Title:     g.Faker.ProductName(),
		Order:     order,
		SectionID: sectionID,
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

func (g *Generator) comment(taskID, authorID string) models.Comment {
	created, updated := g.timestamps()
	return models.Comment{
		ID:        g.Faker.UUID(),
		Message:   g.Faker.Paragraph(1, 3, 12, " "),
		TaskID:    taskID,
		AuthorID:  authorID,
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

// timestamps returns a random createdAt and an updatedAt not before it.
func (g *Generator) timestamps() (string, string) {
	a, b := g.Faker.Date(), g.Faker.Date()
	if b.Before(a) {
		a, b = b, a
	}
	return models.Timestamp(a), models.Timestamp(b)
}

// put stores rows as the records of collection.
func put[T any](doc store.Document, collection string, rows []T) error {
	records := make([]store.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := store.Encode(row)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", collection, err)
		}
		records = append(records, rec)
	}
	doc[collection] = records
	return nil
}
