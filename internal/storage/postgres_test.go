package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/pkg/types"
)

func newMockSink(t *testing.T) (*PostgresSink, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return &PostgresSink{db: db, logger: zap.NewNop()}, mock
}

func completeWithWinner() *types.CompleteEvent {
	return &types.CompleteEvent{
		EventBase:          types.NewEventBase("run_1", types.EventComplete, time.Now()),
		TotalRounds:        3,
		ExchangesCompleted: map[string]int{"seller_1": 3},
		WinnerID:           "seller_1",
		WinningOffer:       &types.OfferPayload{OfferID: "offer_1", Price: 9.5, Quantity: 100, ItemID: "item_apples"},
		Reason:             "Offer accepted",
	}
}

func TestStoreOutcomeWithWinner(t *testing.T) {
	sink, mock := newMockSink(t)

	mock.ExpectExec("INSERT INTO negotiation_outcomes").
		WithArgs("run_1", 3, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "Offer accepted").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := sink.StoreOutcome(context.Background(), "run_1", completeWithWinner())
	if err != nil {
		t.Fatalf("StoreOutcome: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStoreOutcomeWithoutWinner(t *testing.T) {
	sink, mock := newMockSink(t)

	outcome := &types.CompleteEvent{
		EventBase:          types.NewEventBase("run_2", types.EventComplete, time.Now()),
		TotalRounds:        10,
		ExchangesCompleted: map[string]int{"seller_1": 10},
		Reason:             "Max rounds reached without an acceptable offer",
	}

	// Winner columns must be NULL, not zero values.
	mock.ExpectExec("INSERT INTO negotiation_outcomes").
		WithArgs("run_2", 10, nil, nil, nil, sqlmock.AnyArg(), outcome.Reason).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := sink.StoreOutcome(context.Background(), "run_2", outcome)
	if err != nil {
		t.Fatalf("StoreOutcome: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStoreOutcomeWrapsDriverError(t *testing.T) {
	sink, mock := newMockSink(t)

	mock.ExpectExec("INSERT INTO negotiation_outcomes").
		WillReturnError(context.DeadlineExceeded)

	err := sink.StoreOutcome(context.Background(), "run_1", completeWithWinner())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestStoreTranscript(t *testing.T) {
	sink, mock := newMockSink(t)

	messages := []types.Message{
		{MessageID: "msg_1", SenderType: types.SenderBuyer, SenderID: "alex", Content: "hi"},
		{MessageID: "msg_2", SenderType: types.SenderSeller, SenderID: "seller_1", Content: "hello"},
	}

	mock.ExpectExec("INSERT INTO negotiation_transcripts").
		WithArgs("run_1", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := sink.StoreTranscript(context.Background(), "run_1", messages)
	if err != nil {
		t.Fatalf("StoreTranscript: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
