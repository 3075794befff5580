package postgres

import (
	"context"
	"fmt"
	"time"

	"livequiz-service/internal/domain"

	"github.com/uptrace/bun"
)

// gameRecordRow maps the game_history table.
type gameRecordRow struct {
	bun.BaseModel `bun:"table:game_history"`

	ID          string     `bun:"id,pk"`
	PIN         string     `bun:"pin,notnull"`
	QuizID      string     `bun:"quiz_id,notnull"`
	QuizTitle   string     `bun:"quiz_title,notnull"`
	HostName    string     `bun:"host_name,notnull"`
	PlayerCount int        `bun:"player_count,notnull"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	StartedAt   *time.Time `bun:"started_at"`
	EndedAt     *time.Time `bun:"ended_at"`
}

// Archive persists finished-game summaries for host history listings.
type Archive struct {
	db *bun.DB
}

func NewArchive(db *bun.DB) *Archive {
	return &Archive{db: db}
}

func (a *Archive) SaveRecord(ctx context.Context, rec domain.GameRecord) error {
	row := &gameRecordRow{
		ID:          rec.ID,
		PIN:         rec.PIN,
		QuizID:      rec.QuizID,
		QuizTitle:   rec.QuizTitle,
		HostName:    rec.HostName,
		PlayerCount: rec.PlayerCount,
		CreatedAt:   rec.CreatedAt,
		StartedAt:   rec.StartedAt,
		EndedAt:     rec.EndedAt,
	}
	_, err := a.db.NewInsert().Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("ended_at = EXCLUDED.ended_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save game record: %w", err)
	}
	return nil
}

func (a *Archive) ListByHost(ctx context.Context, hostName string, limit int) ([]domain.GameRecord, error) {
	var rows []gameRecordRow
	err := a.db.NewSelect().Model(&rows).
		Where("host_name = ?", hostName).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list game records: %w", err)
	}

	records := make([]domain.GameRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.GameRecord{
			ID:          row.ID,
			PIN:         row.PIN,
			QuizID:      row.QuizID,
			QuizTitle:   row.QuizTitle,
			HostName:    row.HostName,
			PlayerCount: row.PlayerCount,
			CreatedAt:   row.CreatedAt,
			StartedAt:   row.StartedAt,
			EndedAt:     row.EndedAt,
		})
	}
	return records, nil
}

func (a *Archive) DeleteRecord(ctx context.Context, id, hostName string) error {
	res, err := a.db.NewDelete().Model((*gameRecordRow)(nil)).
		Where("id = ? AND host_name = ?", id, hostName).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete game record: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.Errorf(domain.KindNotFound, "hosted game not found")
	}
	return nil
}
