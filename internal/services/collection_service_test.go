package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"cobros/internal/core"
	"cobros/internal/source"
)

var fixedNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestCollectionService_Record(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	inv := &countingInvalidator{}
	svc := NewCollectionService(store, pub, inv, clock, nil)

	got, err := svc.Record(context.Background(), core.Payment{
		Collaborator: core.CollaboratorRef{ID: "c1", Name: "Ana"},
		Digital:      core.Money{Cents: 1000},
		Cash:         core.Money{Cents: 500},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got.ID == "" || !got.Date.Equal(fixedNow) || got.Status != core.StatusPartial {
		t.Fatalf("expected id, date and status defaults, got %+v", got)
	}
	if len(store.saved) != 1 || store.saved[0].ID != got.ID {
		t.Fatalf("payment not persisted: %+v", store.saved)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].PaymentID != got.ID || pub.msgs[0].AmountCents != 1500 {
		t.Fatalf("unexpected published messages %+v", pub.msgs)
	}
	if inv.n != 1 {
		t.Fatalf("expected one invalidation, got %d", inv.n)
	}
}

func TestCollectionService_RecordUsesStoreReference(t *testing.T) {
	store := &fakeStore{ref: "remote-42"}
	svc := NewCollectionService(store, nil, nil, clock, nil)

	got, err := svc.Record(context.Background(), core.Payment{
		Collaborator: core.CollaboratorRef{ID: "c1"},
		Cash:         core.Money{Cents: 1},
	})
	if err != nil || got.ID != "remote-42" {
		t.Fatalf("expected store reference, got %q %v", got.ID, err)
	}
}

func TestCollectionService_RecordErrors(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		store := &fakeStore{}
		pub := &fakePublisher{}
		svc := NewCollectionService(store, pub, nil, clock, nil)
		_, err := svc.Record(context.Background(), core.Payment{Collaborator: core.CollaboratorRef{ID: "c1"}})
		if !errors.Is(err, core.ErrEmptyAmount) {
			t.Fatalf("expected ErrEmptyAmount, got %v", err)
		}
		if len(store.saved) != 0 || len(pub.msgs) != 0 {
			t.Fatalf("invalid payments must not be saved or published")
		}
	})

	t.Run("store failure", func(t *testing.T) {
		inv := &countingInvalidator{}
		svc := NewCollectionService(&fakeStore{err: errBackend}, nil, inv, clock, nil)
		_, err := svc.Record(context.Background(), core.Payment{Collaborator: core.CollaboratorRef{ID: "c1"}, Cash: core.Money{Cents: 1}})
		if !errors.Is(err, errBackend) {
			t.Fatalf("expected wrapped backend error, got %v", err)
		}
		if inv.n != 0 {
			t.Fatalf("failed saves must not invalidate")
		}
	})

	t.Run("publish failure is not fatal", func(t *testing.T) {
		svc := NewCollectionService(&fakeStore{}, &fakePublisher{err: errors.New("broker down")}, nil, clock, nil)
		if _, err := svc.Record(context.Background(), core.Payment{Collaborator: core.CollaboratorRef{ID: "c1"}, Cash: core.Money{Cents: 1}}); err != nil {
			t.Fatalf("publish errors must not fail the request: %v", err)
		}
	})
}

func TestCollectionService_ListClampsPage(t *testing.T) {
	store := &fakeStore{page: source.Page{HasMore: true}}
	svc := NewCollectionService(store, nil, nil, clock, nil)

	page, err := svc.List(context.Background(), -5, 1000)
	if err != nil || !page.HasMore {
		t.Fatalf("unexpected page %+v %v", page, err)
	}
	if store.pageArgs != [2]int{0, MaxPageSize} {
		t.Fatalf("expected clamped args, got %v", store.pageArgs)
	}
}

func TestCollectionService_ListPlacesUndatedAtNow(t *testing.T) {
	seeded := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{page: source.Page{Payments: source.Payments{Records: []core.Payment{
		{ID: "dated", Date: seeded},
		{ID: "undated", Date: seeded, DateDefaulted: true},
	}}}}
	svc := NewCollectionService(store, nil, nil, clock, nil)

	page, err := svc.List(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !page.Records[0].Date.Equal(seeded) || !page.Records[1].Date.Equal(fixedNow) {
		t.Fatalf("unexpected dates %v and %v", page.Records[0].Date, page.Records[1].Date)
	}
}
