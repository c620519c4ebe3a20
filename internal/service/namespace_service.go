package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/index"
	"github.com/knowd-io/knowd/internal/logutil"
	"github.com/knowd-io/knowd/internal/model"
	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
	"github.com/knowd-io/knowd/internal/repo"
)

var namespaceNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

// builtinSpaces are seeded on startup and cannot be deleted.
var builtinSpaces = []model.Namespace{
	{
		Name:        "hr_policies",
		Description: "Human resources policies, benefits, leave and onboarding",
		Keywords:    []string{"leave", "vacation", "benefits", "salary", "onboarding", "policy"},
	},
	{
		Name:        "legal_contracts",
		Description: "Legal agreements, contracts, compliance and NDAs",
		Keywords:    []string{"contract", "nda", "agreement", "compliance", "legal"},
	},
	{
		Name:        "finance_reports",
		Description: "Financial reports, budgets, expenses and forecasts",
		Keywords:    []string{"budget", "expense", "revenue", "forecast", "invoice"},
	},
}

type NamespaceService struct {
	spaces *repo.NamespaceRepo
	docs   *repo.DocumentRepo
	idx    index.Index
}

func NewNamespaceService(spaces *repo.NamespaceRepo, docs *repo.DocumentRepo, idx index.Index) *NamespaceService {
	return &NamespaceService{spaces: spaces, docs: docs, idx: idx}
}

// SeedBuiltins creates the built-in intent spaces that are missing. Existing
// rows are left untouched so operator edits to descriptions survive restarts.
func (s *NamespaceService) SeedBuiltins(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	for _, builtin := range builtinSpaces {
		if _, err := s.spaces.GetByName(ctx, builtin.Name); err == nil {
			continue
		} else if !appErr.IsNotFound(err) {
			return err
		}
		ns := builtin
		ns.Builtin = true
		ns.Ctime = time.Now().Unix()
		if err := s.spaces.Create(ctx, &ns); err != nil {
			return fmt.Errorf("seed namespace %s: %w", ns.Name, err)
		}
		logger.Info("seeded builtin namespace", zap.String("name", ns.Name), zap.Int64("id", ns.ID))
	}
	return nil
}

func (s *NamespaceService) Create(ctx context.Context, name, description string, keywords []string) (*model.Namespace, error) {
	if !namespaceNameRe.MatchString(name) {
		return nil, fmt.Errorf("%w: namespace name must be snake_case, 2-64 chars", appErr.ErrInvalid)
	}
	if name == model.GeneralIntent {
		return nil, fmt.Errorf("%w: %q is reserved", appErr.ErrInvalid, model.GeneralIntent)
	}
	ns := &model.Namespace{
		Name:        name,
		Description: description,
		Keywords:    keywords,
		Ctime:       time.Now().Unix(),
	}
	if err := s.spaces.Create(ctx, ns); err != nil {
		return nil, err
	}
	return ns, nil
}

func (s *NamespaceService) Get(ctx context.Context, id int64) (*model.Namespace, error) {
	return s.spaces.GetByID(ctx, id)
}

func (s *NamespaceService) List(ctx context.Context) ([]model.Namespace, error) {
	return s.spaces.List(ctx)
}

func (s *NamespaceService) Update(ctx context.Context, id int64, description string, keywords []string) (*model.Namespace, error) {
	if err := s.spaces.Update(ctx, id, description, keywords); err != nil {
		return nil, err
	}
	return s.spaces.GetByID(ctx, id)
}

// Delete removes an empty, non-builtin namespace and drops its index state.
func (s *NamespaceService) Delete(ctx context.Context, id int64) error {
	ns, err := s.spaces.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ns.Builtin {
		return appErr.ErrBuiltinSpace
	}
	count, err := s.docs.CountByNamespace(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return appErr.ErrSpaceNotEmpty
	}
	if err := s.spaces.Delete(ctx, id); err != nil {
		return err
	}
	return s.idx.DropNamespace(ctx, id)
}
