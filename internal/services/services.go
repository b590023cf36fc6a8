package services

import (
	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/repository"
)

// Services bundles the audited mutators for one library.
type Services struct {
	Books   *BookService
	Users   *UserService
	Authors *AuthorService
	Agents  *AgentService
}

func New(lib *repository.Library, auditor *audit.Service) *Services {
	return &Services{
		Books:   NewBookService(lib.Books, auditor),
		Users:   NewUserService(lib.Users, auditor),
		Authors: NewAuthorService(lib.Users, lib.Authors, auditor),
		Agents:  NewAgentService(lib.Users, auditor),
	}
}
