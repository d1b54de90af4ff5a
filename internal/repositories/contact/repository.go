// Package contact persists the contact book. Endpoint values are normalized
// on write so the search shapes the matching aggregator needs (phone digit
// prefix, email domain, name substring) stay as plain indexed comparisons.
package contact

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/bramble/pkg/database"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/normalizers"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const contactColumns = "id, tenant_id, display_name, created_at, updated_at"
const endpointColumns = "id, contact_id, endpoint_type, raw_value, normalized_value, created_at"

// Repository handles contact persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new contact repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a contact and its endpoints in one transaction
func (r *Repository) Create(ctx context.Context, tenantID string, req *models.CreateContactRequest) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	contact := &models.Contact{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		DisplayName: req.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create contact")
	}
	defer tx.Rollback(ctx)

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("contacts")
	sb.Cols("id", "tenant_id", "display_name", "created_at", "updated_at")
	sb.Values(contact.ID, contact.TenantID, contact.DisplayName, contact.CreatedAt, contact.UpdatedAt)

	query, args := sb.Build()
	if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"contact_id": contact.ID}).Error("Failed to create contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create contact")
	}

	if len(req.Endpoints) > 0 {
		eb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		eb.InsertInto("contact_endpoints")
		eb.Cols("id", "contact_id", "tenant_id", "endpoint_type", "raw_value", "normalized_value", "created_at")

		for _, e := range req.Endpoints {
			endpoint := models.Endpoint{
				ID:         uuid.New().String(),
				ContactID:  contact.ID,
				Type:       e.Type,
				Raw:        e.Raw,
				Normalized: normalizeEndpoint(e.Type, e.Raw),
				CreatedAt:  now,
			}
			eb.Values(endpoint.ID, endpoint.ContactID, tenantID, endpoint.Type, endpoint.Raw, endpoint.Normalized, endpoint.CreatedAt)
			contact.Endpoints = append(contact.Endpoints, endpoint)
		}

		query, args = eb.Build()
		if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"contact_id": contact.ID}).Error("Failed to create contact endpoints")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create contact")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create contact")
	}

	return contact, nil
}

// Get retrieves a contact with its endpoints
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contactColumns)
	sb.From("contacts")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var contact models.Contact
	if err := r.db.GetContext(ctx, &contact, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contact %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get contact")
	}

	endpoints, err := r.loadEndpoints(ctx, tenantID, []string{contact.ID})
	if err != nil {
		return nil, err
	}
	contact.Endpoints = endpoints[contact.ID]

	return &contact, nil
}

// Delete removes a contact; endpoints go with it via FK cascade
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("contacts")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete contact")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete contact")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contact %s not found", id))
	}

	return nil
}

// SearchByPhonePrefix finds contacts with a phone endpoint whose significant
// digits start with the given prefix
func (r *Repository) SearchByPhonePrefix(ctx context.Context, tenantID, digits string, limit int) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.SearchByPhonePrefix")
	defer span.End()

	query := `
		SELECT DISTINCT c.id, c.tenant_id, c.display_name, c.created_at, c.updated_at
		FROM contacts c
		JOIN contact_endpoints e ON e.contact_id = c.id
		WHERE c.tenant_id = $1
		AND e.endpoint_type = 'phone'
		AND ltrim(e.normalized_value, '0') LIKE $2 || '%'
		ORDER BY c.id
		LIMIT $3
	`

	return r.search(ctx, tenantID, query, digits, clampLimit(limit))
}

// SearchByPhoneSuffix finds contacts with a phone endpoint whose significant
// digits end with the given digits. A query in local format has no country
// code, so its leading digits never prefix-match an E.164-stored number; the
// trailing digits still do.
func (r *Repository) SearchByPhoneSuffix(ctx context.Context, tenantID, digits string, limit int) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.SearchByPhoneSuffix")
	defer span.End()

	query := `
		SELECT DISTINCT c.id, c.tenant_id, c.display_name, c.created_at, c.updated_at
		FROM contacts c
		JOIN contact_endpoints e ON e.contact_id = c.id
		WHERE c.tenant_id = $1
		AND e.endpoint_type = 'phone'
		AND reverse(ltrim(e.normalized_value, '0')) LIKE reverse($2) || '%'
		ORDER BY c.id
		LIMIT $3
	`

	return r.search(ctx, tenantID, query, digits, clampLimit(limit))
}

// SearchByEmailDomain finds contacts with an email endpoint at the given domain
func (r *Repository) SearchByEmailDomain(ctx context.Context, tenantID, domain string, limit int) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.SearchByEmailDomain")
	defer span.End()

	query := `
		SELECT DISTINCT c.id, c.tenant_id, c.display_name, c.created_at, c.updated_at
		FROM contacts c
		JOIN contact_endpoints e ON e.contact_id = c.id
		WHERE c.tenant_id = $1
		AND e.endpoint_type = 'email'
		AND split_part(e.normalized_value, '@', 2) = $2
		ORDER BY c.id
		LIMIT $3
	`

	return r.search(ctx, tenantID, query, domain, clampLimit(limit))
}

// SearchByName finds contacts whose display name contains the given text
func (r *Repository) SearchByName(ctx context.Context, tenantID, name string, limit int) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.SearchByName")
	defer span.End()

	query := `
		SELECT id, tenant_id, display_name, created_at, updated_at
		FROM contacts
		WHERE tenant_id = $1
		AND display_name ILIKE '%' || $2 || '%'
		ORDER BY id
		LIMIT $3
	`

	return r.search(ctx, tenantID, query, name, clampLimit(limit))
}

func (r *Repository) search(ctx context.Context, tenantID, query string, value any, limit int) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, tenantID, value, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search contacts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search contacts")
	}
	if len(contacts) == 0 {
		return contacts, nil
	}

	ids := make([]string, len(contacts))
	for i, c := range contacts {
		ids[i] = c.ID
	}

	endpoints, err := r.loadEndpoints(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	for i := range contacts {
		contacts[i].Endpoints = endpoints[contacts[i].ID]
	}

	return contacts, nil
}

func (r *Repository) loadEndpoints(ctx context.Context, tenantID string, contactIDs []string) (map[string][]models.Endpoint, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(endpointColumns)
	sb.From("contact_endpoints")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.In("contact_id", idsToAny(contactIDs)...),
	)
	sb.OrderBy("contact_id", "created_at")

	query, args := sb.Build()
	var endpoints []models.Endpoint
	if err := r.db.SelectContext(ctx, &endpoints, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load contact endpoints")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load contact endpoints")
	}

	byContact := make(map[string][]models.Endpoint, len(contactIDs))
	for _, e := range endpoints {
		byContact[e.ContactID] = append(byContact[e.ContactID], e)
	}
	return byContact, nil
}

func normalizeEndpoint(endpointType models.EndpointType, value string) string {
	switch endpointType {
	case models.EndpointTypePhone:
		return normalizers.NormalizePhone(value)
	case models.EndpointTypeEmail:
		return normalizers.NormalizeEmail(value)
	default:
		return normalizers.Lowercase(normalizers.Trim(value))
	}
}

func clampLimit(limit int) int {
	if limit < 1 || limit > 500 {
		return 100
	}
	return limit
}

func idsToAny(ids []string) []any {
	result := make([]any, len(ids))
	for i, id := range ids {
		result[i] = id
	}
	return result
}
