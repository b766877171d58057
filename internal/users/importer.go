package users

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/security"
	"github.com/poltekatipdg/sipbmn-backend/pkg/types"
)

const importColumns = 6

// ImportCSV bulk-loads accounts from a CSV export of the campus registry.
// Columns: id,username,name,role,identifierNumber,email. The header row is
// skipped and rows whose id already exists are silently dropped. Imported
// accounts receive a generated password and must reset it before first use.
func (s *service) ImportCSV(ctx context.Context, actor types.Actor, data []byte) (*ImportResult, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &ImportResult{}
	seen := map[string]struct{}{}
	var pending []*models.User
	var ids []string

	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed CSV input")
		}
		line++
		if line == 1 && isHeaderRow(record) {
			continue
		}
		if len(record) != importColumns {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: expected %d columns, got %d", line, importColumns, len(record)))
			continue
		}

		id := strings.TrimSpace(record[0])
		username := strings.TrimSpace(record[1])
		name := strings.TrimSpace(record[2])
		email := strings.TrimSpace(record[5])
		if id == "" || username == "" || name == "" || email == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: id, username, name and email are required", line))
			continue
		}
		if _, dup := seen[id]; dup {
			result.Skipped++
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)

		pending = append(pending, &models.User{
			ID:               id,
			Username:         username,
			Name:             name,
			Role:             enums.MapImportRole(record[3]),
			IdentifierNumber: strings.TrimSpace(record[4]),
			Email:            email,
		})
	}

	existing, err := s.repo.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing users")
	}

	var toCreate []*models.User
	for _, user := range pending {
		if _, ok := existing[user.ID]; ok {
			result.Skipped++
			continue
		}
		password, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
		}
		hash, err := security.HashPassword(password, s.passwordCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		user.PasswordHash = hash
		toCreate = append(toCreate, user)
	}

	if err := s.repo.CreateBatch(ctx, toCreate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert imported users")
	}
	result.Created = len(toCreate)

	ctx = s.logg.WithFields(ctx, map[string]any{
		"created": result.Created,
		"skipped": result.Skipped,
	})
	s.logg.Info(ctx, "user import completed")
	return result, nil
}

func isHeaderRow(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "id")
}
