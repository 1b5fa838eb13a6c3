package storage

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/pkg/types"
)

// PostgresSink implements Sink using PostgreSQL.
type PostgresSink struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresSink connects to PostgreSQL and verifies the connection.
func NewPostgresSink(cfg *PostgresConfig) (*PostgresSink, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-sink-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresSink{db: db, logger: cfg.Logger}, nil
}

// StoreOutcome inserts a run's terminal result.
func (p *PostgresSink) StoreOutcome(ctx context.Context, runID string, outcome *types.CompleteEvent) error {
	var (
		winnerID sql.NullString
		price    sql.NullFloat64
		quantity sql.NullInt64
	)

	if outcome.WinnerID != "" {
		winnerID = sql.NullString{String: outcome.WinnerID, Valid: true}
		price = sql.NullFloat64{Float64: outcome.WinningOffer.Price, Valid: true}
		quantity = sql.NullInt64{Int64: int64(outcome.WinningOffer.Quantity), Valid: true}
	}

	exchanges, err := json.Marshal(outcome.ExchangesCompleted)
	if err != nil {
		return fmt.Errorf("marshal exchanges: %w", err)
	}

	query := `
		INSERT INTO negotiation_outcomes (
			run_id, total_rounds, winner_id, winning_price, winning_quantity,
			exchanges_completed, reason, decided_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err = p.db.ExecContext(ctx, query,
		runID,
		outcome.TotalRounds,
		winnerID,
		price,
		quantity,
		exchanges,
		outcome.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}

	p.logger.Debug("outcome-stored",
		zap.String("run-id", runID),
		zap.String("winner-id", outcome.WinnerID))

	return nil
}

// StoreTranscript archives a run's message history as one JSON document.
func (p *PostgresSink) StoreTranscript(ctx context.Context, runID string, messages []types.Message) error {
	doc, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	query := `
		INSERT INTO negotiation_transcripts (run_id, message_count, transcript, archived_at)
		VALUES ($1, $2, $3, NOW())
	`

	_, err = p.db.ExecContext(ctx, query, runID, len(messages), doc)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}

	p.logger.Debug("transcript-stored",
		zap.String("run-id", runID),
		zap.Int("messages", len(messages)))

	return nil
}

// Close closes the database connection.
func (p *PostgresSink) Close() error {
	p.logger.Info("closing-postgres-sink")
	return p.db.Close()
}
