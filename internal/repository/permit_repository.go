package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jengzang/permit-map-backend-go/internal/database"
	"github.com/jengzang/permit-map-backend-go/internal/models"
	"github.com/jengzang/permit-map-backend-go/internal/spatial"
)

// ErrClusterNotFound is returned when a cluster id has no metadata row
var ErrClusterNotFound = errors.New("cluster not found")

// PermitRepository handles database operations for permits and clusters
type PermitRepository struct {
	db *sql.DB
}

// NewPermitRepository creates a new permit repository
func NewPermitRepository(db *sql.DB) *PermitRepository {
	return &PermitRepository{db: db}
}

// ListPoints returns permits matching the query, ordered by id and capped at q.Limit.
// One extra row is fetched to detect truncation.
func (r *PermitRepository) ListPoints(ctx context.Context, q models.PointQuery) (models.PointPage, error) {
	query := `SELECT id, permit_number, zip_code, latitude, longitude, category,
		cluster_id, project_type, description, value, year
		FROM permits`

	var conditions []string
	var args []interface{}

	filter := models.FilterState{Categories: q.Categories}
	if !filter.IsAll() {
		placeholders := make([]string, 0, len(q.Categories))
		for _, c := range q.Categories {
			placeholders = append(placeholders, "?")
			args = append(args, string(c))
		}
		conditions = append(conditions, "category IN ("+strings.Join(placeholders, ", ")+")")
	}
	if q.ProjectType != "" {
		conditions = append(conditions, "project_type = ?")
		args = append(args, q.ProjectType)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit+1)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return models.PointPage{}, fmt.Errorf("failed to query permits: %w", err)
	}
	defer rows.Close()

	page := models.PointPage{Records: make([]models.RawPoint, 0), Limit: q.Limit}
	for rows.Next() {
		var (
			p         models.RawPoint
			lat, lon  sql.NullFloat64
			value     sql.NullFloat64
			year      sql.NullInt64
			clusterID int
		)
		err := rows.Scan(
			&p.ID, &p.PermitNumber, &p.ZipCode, &lat, &lon, &p.Category,
			&clusterID, &p.ProjectType, &p.Description, &value, &year,
		)
		if err != nil {
			return models.PointPage{}, fmt.Errorf("failed to scan permit: %w", err)
		}

		// Null coordinates stay nil and are dropped by the normalizer
		if lat.Valid {
			p.Latitude = lat.Float64
		}
		if lon.Valid {
			p.Longitude = lon.Float64
		}
		p.ClusterID = &clusterID
		if value.Valid {
			v := value.Float64
			p.Value = &v
		}
		if year.Valid {
			y := int(year.Int64)
			p.Year = &y
		}
		page.Records = append(page.Records, p)
	}
	if err := rows.Err(); err != nil {
		return models.PointPage{}, fmt.Errorf("failed to iterate permits: %w", err)
	}

	if q.Limit > 0 && len(page.Records) > q.Limit {
		page.Records = page.Records[:q.Limit]
		page.Truncated = true
	}
	return page, nil
}

// SummaryTotals counts permits by category and by cluster over the whole table
func (r *PermitRepository) SummaryTotals(ctx context.Context) (models.SummaryTotals, error) {
	totals := models.SummaryTotals{
		ByCategory: make(map[models.Category]int),
		ByCluster:  make(map[int]int),
	}

	rows, err := r.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM permits GROUP BY category`)
	if err != nil {
		return totals, fmt.Errorf("failed to query category totals: %w", err)
	}
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			rows.Close()
			return totals, fmt.Errorf("failed to scan category total: %w", err)
		}
		totals.ByCategory[models.ParseCategory(category)] += n
		totals.Total += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return totals, fmt.Errorf("failed to iterate category totals: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, `SELECT cluster_id, COUNT(*) FROM permits GROUP BY cluster_id`)
	if err != nil {
		return totals, fmt.Errorf("failed to query cluster totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, n int
		if err := rows.Scan(&id, &n); err != nil {
			return totals, fmt.Errorf("failed to scan cluster total: %w", err)
		}
		totals.ByCluster[id] = n
	}
	if err := rows.Err(); err != nil {
		return totals, fmt.Errorf("failed to iterate cluster totals: %w", err)
	}

	return totals, nil
}

// GeographyFeatures returns one feature per (zip code, cluster) with the mean
// position of its permits, the cluster metadata and the cluster's total.
func (r *PermitRepository) GeographyFeatures(ctx context.Context, limit int) ([]models.GeoFeature, error) {
	query := `SELECT p.zip_code, p.cluster_id, AVG(p.latitude), AVG(p.longitude),
		COALESCE(c.name, ''), COALESCE(c.category, ''), t.total
		FROM permits p
		LEFT JOIN clusters c ON c.id = p.cluster_id
		JOIN (SELECT cluster_id, COUNT(*) AS total FROM permits GROUP BY cluster_id) t
			ON t.cluster_id = p.cluster_id
		WHERE p.latitude IS NOT NULL AND p.longitude IS NOT NULL
		GROUP BY p.zip_code, p.cluster_id
		ORDER BY p.cluster_id, p.zip_code`

	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query geography: %w", err)
	}
	defer rows.Close()

	features := make([]models.GeoFeature, 0)
	for rows.Next() {
		var f models.GeoFeature
		var lat, lon float64
		var category string
		if err := rows.Scan(&f.ZipCode, &f.ClusterID, &lat, &lon, &f.ClusterName, &category, &f.TotalPermits); err != nil {
			return nil, fmt.Errorf("failed to scan geography feature: %w", err)
		}
		f.Position = spatial.Point{Lat: lat, Lon: lon}
		if category != "" {
			f.Category = models.ParseCategory(category)
		}
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate geography: %w", err)
	}

	return features, nil
}

// InsertPermits stores normalized permits in one transaction, replacing rows with the same id
func (r *PermitRepository) InsertPermits(ctx context.Context, points []models.Point) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	err := database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO permits
			(id, permit_number, zip_code, latitude, longitude, category,
			cluster_id, project_type, description, value, year)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			var year interface{}
			if p.Year != 0 {
				year = p.Year
			}
			_, err := stmt.ExecContext(ctx,
				p.ID, p.PermitNumber, p.ZipCode, p.Position.Lat, p.Position.Lon, string(p.Category),
				p.ClusterID, p.ProjectType, p.Description, p.Value, year,
			)
			if err != nil {
				return fmt.Errorf("failed to insert permit %s: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(points), nil
}

// UpsertCluster creates or updates a cluster's name and category
func (r *PermitRepository) UpsertCluster(ctx context.Context, info models.ClusterInfo) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO clusters (id, name, category) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, category = excluded.category,
		updated_at = CURRENT_TIMESTAMP`,
		info.ID, info.Name, string(info.Category))
	if err != nil {
		return fmt.Errorf("failed to upsert cluster %d: %w", info.ID, err)
	}
	return nil
}

// GetCluster retrieves a single cluster by id
func (r *PermitRepository) GetCluster(ctx context.Context, id int) (*models.ClusterInfo, error) {
	var info models.ClusterInfo
	var category string
	err := r.db.QueryRowContext(ctx, `SELECT id, name, category FROM clusters WHERE id = ?`, id).
		Scan(&info.ID, &info.Name, &category)
	if err == sql.ErrNoRows {
		return nil, ErrClusterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster %d: %w", id, err)
	}
	if category != "" {
		info.Category = models.ParseCategory(category)
	}
	return &info, nil
}

// ListClusters returns all cluster metadata ordered by id
func (r *PermitRepository) ListClusters(ctx context.Context) ([]models.ClusterInfo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, category FROM clusters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters: %w", err)
	}
	defer rows.Close()

	clusters := make([]models.ClusterInfo, 0)
	for rows.Next() {
		var info models.ClusterInfo
		var category string
		if err := rows.Scan(&info.ID, &info.Name, &category); err != nil {
			return nil, fmt.Errorf("failed to scan cluster: %w", err)
		}
		if category != "" {
			info.Category = models.ParseCategory(category)
		}
		clusters = append(clusters, info)
	}
	return clusters, rows.Err()
}
