package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vn.io.arda/useradmin/internal/domain"
)

// deleteBatchLimit is the per-batch mutation ceiling of the store. Cascade
// deletes are chunked to this size and the chunks committed concurrently.
const deleteBatchLimit = 400

// Store is the PostgreSQL implementation of domain.ProfileStore.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new postgres Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetProfile fetches a profile by account id; (nil, nil) when absent.
func (s *Store) GetProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, full_name, role, org_id, department_id, created_at, updated_at
		FROM user_profiles WHERE id = $1
	`, id)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// InsertProfile stores a new profile with server-assigned timestamps.
func (s *Store) InsertProfile(ctx context.Context, p domain.UserProfile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_profiles (id, email, full_name, role, org_id, department_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`, p.ID, p.Email, p.FullName, string(p.Role), p.OrgID, nullable(p.DepartmentID))
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// UpdateProfile merge-updates only the supplied columns plus updated_at.
func (s *Store) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) error {
	set := "updated_at = now()"
	args := []any{}
	paramIdx := 1

	appendSet := func(col string, val any) {
		set += fmt.Sprintf(", %s = $%d", col, paramIdx)
		args = append(args, val)
		paramIdx++
	}

	if patch.Email != nil {
		appendSet("email", *patch.Email)
	}
	if patch.FullName != nil {
		appendSet("full_name", *patch.FullName)
	}
	if patch.Role != nil {
		appendSet("role", string(*patch.Role))
	}
	if patch.OrgID != nil {
		appendSet("org_id", *patch.OrgID)
	}
	if patch.DepartmentID != nil {
		// An empty departmentId clears the assignment.
		appendSet("department_id", nullable(patch.DepartmentID))
	}

	query := fmt.Sprintf("UPDATE user_profiles SET %s WHERE id = $%d", set, paramIdx)
	args = append(args, id)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.E(domain.KindNotFound, "profile %s not found", id)
	}
	return nil
}

// DeleteProfile removes a profile; a missing row is not an error.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM user_profiles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

// GetDepartment fetches a department by id; (nil, nil) when absent.
func (s *Store) GetDepartment(ctx context.Context, id string) (*domain.Department, error) {
	var d domain.Department
	err := s.pool.QueryRow(ctx,
		`SELECT id, org_id FROM departments WHERE id = $1`, id,
	).Scan(&d.ID, &d.OrgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &d, nil
}

// ListProfiles returns profiles matching the filter, newest first.
func (s *Store) ListProfiles(ctx context.Context, f domain.ProfileFilter) ([]*domain.UserProfile, error) {
	query := `
		SELECT id, email, full_name, role, org_id, department_id, created_at, updated_at
		FROM user_profiles WHERE 1=1
	`
	args := []any{}
	paramIdx := 1

	if f.OrgID != "" {
		query += fmt.Sprintf(" AND org_id = $%d", paramIdx)
		args = append(args, f.OrgID)
		paramIdx++
	}
	if f.DepartmentID != "" {
		query += fmt.Sprintf(" AND department_id = $%d", paramIdx)
		args = append(args, f.DepartmentID)
		paramIdx++
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var results []*domain.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// ScheduleIDsByCreator returns the ids of all schedules created by uid.
func (s *Store) ScheduleIDsByCreator(ctx context.Context, uid string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM schedules WHERE created_by = $1`, uid)
	if err != nil {
		return nil, fmt.Errorf("schedules by creator: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan schedule id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteSchedules removes the given schedules in chunks of at most
// deleteBatchLimit mutations. Batch commits are issued concurrently and
// all joined before returning; deletes are commutative so ordering among
// batches does not matter.
func (s *Store) DeleteSchedules(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	chunks := chunkIDs(ids, deleteBatchLimit)

	var wg sync.WaitGroup
	errCh := make(chan error, len(chunks))

	for _, chunk := range chunks {
		wg.Add(1)
		go func(chunk []string) {
			defer wg.Done()
			b := &pgx.Batch{}
			for _, id := range chunk {
				b.Queue(`DELETE FROM schedules WHERE id = $1`, id)
			}
			if err := s.pool.SendBatch(ctx, b).Close(); err != nil {
				errCh <- fmt.Errorf("delete schedules batch: %w", err)
			}
		}(chunk)
	}

	wg.Wait()
	close(errCh)
	return <-errCh
}

// chunkIDs splits ids into slices of at most limit elements.
func chunkIDs(ids []string, limit int) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += limit {
		end := start + limit
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// --- helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanProfile(row scannable) (*domain.UserProfile, error) {
	var (
		p            domain.UserProfile
		role         string
		departmentID *string
		createdAt    time.Time
		updatedAt    time.Time
	)
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &role, &p.OrgID, &departmentID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.Role = domain.Role(role)
	p.DepartmentID = departmentID
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	return &p, nil
}

// nullable maps an absent or empty string pointer to SQL NULL.
func nullable(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
