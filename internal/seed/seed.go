// Package seed loads sample library data from YAML into the backing store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/logger"
	"github.com/sboapp/admin/internal/repository"
	"github.com/sboapp/admin/internal/services"
)

//go:embed sample.yaml
var sample []byte

// File is the seed document.
type File struct {
	Categories    []entities.Category     `yaml:"categories"`
	Subscriptions []entities.Subscription `yaml:"subscriptions"`
	Users         []repository.UserInput  `yaml:"users"`
	Books         []repository.BookInput  `yaml:"books"`
	LandingPage   *entities.LandingPage   `yaml:"landingPage"`
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &f, nil
}

// Load reads a seed file from disk. An empty path selects the built-in sample.
func Load(path string) (*File, error) {
	if path == "" {
		return Parse(bytes.NewReader(sample))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Result counts what Apply wrote and skipped.
type Result struct {
	Categories    int  `json:"categories"`
	Subscriptions int  `json:"subscriptions"`
	Users         int  `json:"users"`
	Books         int  `json:"books"`
	LandingPage   bool `json:"landingPage"`
	Skipped       int  `json:"skipped"`
}

// Seeder writes seed documents through the audited services.
type Seeder struct {
	lib *repository.Library
	svc *services.Services
}

func NewSeeder(lib *repository.Library, svc *services.Services) *Seeder {
	return &Seeder{lib: lib, svc: svc}
}

// Apply writes f. Users whose email and books whose title and author already
// exist are skipped, so applying the same file twice is harmless.
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	var res Result
	actor := audit.SystemActor

	for _, cat := range f.Categories {
		var err error
		if cat.CatID == 0 {
			_, err = s.lib.Categories.Create(ctx, cat.CatName)
		} else {
			err = s.lib.Categories.Put(ctx, cat)
		}
		if err != nil {
			return res, fmt.Errorf("seed category %q: %w", cat.CatName, err)
		}
		res.Categories++
	}

	for _, sub := range f.Subscriptions {
		if err := s.lib.Subscriptions.Put(ctx, sub); err != nil {
			return res, fmt.Errorf("seed subscription %q: %w", sub.SubName, err)
		}
		res.Subscriptions++
	}

	existingUsers, err := s.lib.Users.List(ctx)
	if err != nil {
		return res, err
	}
	emails := make(map[string]bool, len(existingUsers))
	for _, u := range existingUsers {
		emails[strings.ToLower(u.Email)] = true
	}
	for _, in := range f.Users {
		if emails[strings.ToLower(in.Email)] {
			res.Skipped++
			continue
		}
		if err := s.createUser(ctx, actor, in); err != nil {
			return res, fmt.Errorf("seed user %q: %w", in.Email, err)
		}
		emails[strings.ToLower(in.Email)] = true
		res.Users++
	}

	existingBooks, err := s.lib.Books.List(ctx)
	if err != nil {
		return res, err
	}
	titles := make(map[string]bool, len(existingBooks))
	for _, b := range existingBooks {
		titles[bookKey(b.BookName, b.BookAuth)] = true
	}
	for _, in := range f.Books {
		key := bookKey(in.Title, in.Author)
		if titles[key] {
			res.Skipped++
			continue
		}
		if _, err := s.svc.Books.Create(ctx, actor, in); err != nil {
			return res, fmt.Errorf("seed book %q: %w", in.Title, err)
		}
		titles[key] = true
		res.Books++
	}

	if f.LandingPage != nil {
		if err := s.lib.AppData.PutLandingPage(ctx, *f.LandingPage); err != nil {
			return res, fmt.Errorf("seed landing page: %w", err)
		}
		res.LandingPage = true
	}

	logger.WithFields(logrus.Fields{
		"categories": res.Categories,
		"users":      res.Users,
		"books":      res.Books,
		"skipped":    res.Skipped,
	}).Info("Seed applied")
	return res, nil
}

func (s *Seeder) createUser(ctx context.Context, actor audit.Actor, in repository.UserInput) error {
	var err error
	switch in.Role {
	case entities.UserRoleAuthor:
		_, err = s.svc.Authors.Create(ctx, actor, in)
	case entities.UserRoleAgent:
		_, err = s.svc.Agents.Create(ctx, actor, in)
	default:
		_, err = s.svc.Users.Create(ctx, actor, in)
	}
	return err
}

func bookKey(title, author string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(author))
}
