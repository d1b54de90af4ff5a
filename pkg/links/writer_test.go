package links

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/bramble/pkg/itemstore"
	"github.com/Ramsey-B/bramble/pkg/models"
)

type fakeItemStore struct {
	items       map[string]itemstore.Item
	tags        map[string][]string
	failPuts    map[string]error
	failDeletes map[string]error
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{
		items:       make(map[string]itemstore.Item),
		tags:        make(map[string][]string),
		failPuts:    make(map[string]error),
		failDeletes: make(map[string]error),
	}
}

func (f *fakeItemStore) Put(_ context.Context, collection, key string, data any, tags []string) (*itemstore.Item, error) {
	if err := f.failPuts[key]; err != nil {
		return nil, err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	item := itemstore.Item{
		Collection: collection,
		Key:        key,
		Data:       raw,
		Tags:       tags,
		CreatedAt:  time.Now().UTC(),
	}
	f.items[collection+"|"+key] = item
	f.tags[collection+"|"+key] = tags
	return &item, nil
}

func (f *fakeItemStore) Get(_ context.Context, collection, key string) (*itemstore.Item, error) {
	item, ok := f.items[collection+"|"+key]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (f *fakeItemStore) Delete(_ context.Context, collection, key string) (bool, error) {
	if err := f.failDeletes[key]; err != nil {
		return false, err
	}
	composite := collection + "|" + key
	_, ok := f.items[composite]
	delete(f.items, composite)
	delete(f.tags, composite)
	return ok, nil
}

func (f *fakeItemStore) ListByTag(_ context.Context, collection, tag string, limit int) ([]itemstore.Item, error) {
	var out []itemstore.Item
	for composite, tags := range f.tags {
		if !strings.HasPrefix(composite, collection+"|") {
			continue
		}
		for _, t := range tags {
			if t == tag {
				out = append(out, f.items[composite])
				break
			}
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeEventSink struct {
	created  []models.EntityLink
	deleted  []models.EntityLink
	orphaned []models.EntityLink
}

func (f *fakeEventSink) EmitLinkCreated(_ context.Context, _ string, link models.EntityLink) {
	f.created = append(f.created, link)
}

func (f *fakeEventSink) EmitLinkDeleted(_ context.Context, _ string, link models.EntityLink) {
	f.deleted = append(f.deleted, link)
}

func (f *fakeEventSink) EmitLinkOrphaned(_ context.Context, _ string, link models.EntityLink) {
	f.orphaned = append(f.orphaned, link)
}

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

var (
	threadRef  = models.EntityRef{Type: models.EntityTypeThread, ID: "thread-9"}
	contactRef = models.EntityRef{Type: models.EntityTypeContact, ID: "contact-42"}
)

func forwardKey() string {
	return models.LinkKey(threadRef.Type, threadRef.ID, contactRef.Type, contactRef.ID)
}

func reverseKey() string {
	return models.LinkKey(contactRef.Type, contactRef.ID, threadRef.Type, threadRef.ID)
}

func TestCreateLinkWritesBothDirections(t *testing.T) {
	store := newFakeItemStore()
	sink := &fakeEventSink{}
	writer := NewWriter(noopLogger(), store, sink)

	ok := writer.CreateLink(context.Background(), "tenant-1", threadRef, contactRef, "inbound-message-sender", true)
	require.True(t, ok)

	collection := linkCollection("tenant-1")
	forward, err := store.Get(context.Background(), collection, forwardKey())
	require.NoError(t, err)
	require.NotNil(t, forward)

	reverse, err := store.Get(context.Background(), collection, reverseKey())
	require.NoError(t, err)
	require.NotNil(t, reverse)

	var reverseLink models.EntityLink
	require.NoError(t, json.Unmarshal(reverse.Data, &reverseLink))
	assert.Equal(t, contactRef.ID, reverseLink.SourceID)
	assert.Equal(t, threadRef.ID, reverseLink.TargetRef)
	assert.Equal(t, "inbound-message-sender", reverseLink.Label)
	assert.True(t, reverseLink.AutoLinked)

	require.Len(t, sink.created, 1)
	assert.Empty(t, sink.orphaned)
}

func TestCreateLinkIsIdempotent(t *testing.T) {
	store := newFakeItemStore()
	writer := NewWriter(noopLogger(), store, &fakeEventSink{})

	require.True(t, writer.CreateLink(context.Background(), "tenant-1", threadRef, contactRef, "", false))
	require.True(t, writer.CreateLink(context.Background(), "tenant-1", threadRef, contactRef, "", false))

	// two edges, not four
	assert.Len(t, store.items, 2)
}

func TestCreateLinkRollsBackForwardOnReverseFailure(t *testing.T) {
	store := newFakeItemStore()
	store.failPuts[reverseKey()] = errors.New("write refused")
	sink := &fakeEventSink{}
	writer := NewWriter(noopLogger(), store, sink)

	ok := writer.CreateLink(context.Background(), "tenant-1", threadRef, contactRef, "", false)
	require.False(t, ok)

	// both directions absent after the compensating delete
	assert.Empty(t, store.items)
	assert.Empty(t, sink.created)
	assert.Empty(t, sink.orphaned)
}

func TestCreateLinkReportsOrphanWhenRollbackFails(t *testing.T) {
	store := newFakeItemStore()
	store.failPuts[reverseKey()] = errors.New("write refused")
	store.failDeletes[forwardKey()] = errors.New("delete refused")
	sink := &fakeEventSink{}

	writer := NewWriter(noopLogger(), store, sink)

	ok := writer.CreateLink(context.Background(), "tenant-1", threadRef, contactRef, "", false)
	require.False(t, ok)

	// the forward record is stranded and the failure must be observable
	assert.Len(t, store.items, 1)
	require.Len(t, sink.orphaned, 1)
	assert.Equal(t, forwardKey(), sink.orphaned[0].Key())
}

func TestDeleteLinkRemovesBothDirections(t *testing.T) {
	store := newFakeItemStore()
	sink := &fakeEventSink{}
	writer := NewWriter(noopLogger(), store, sink)

	require.True(t, writer.CreateLink(context.Background(), "tenant-1", threadRef, contactRef, "", false))
	require.True(t, writer.DeleteLink(context.Background(), "tenant-1", threadRef, contactRef))

	assert.Empty(t, store.items)
	assert.Len(t, sink.deleted, 1)
}

func TestDeleteLinkMissingReturnsFalse(t *testing.T) {
	writer := NewWriter(noopLogger(), newFakeItemStore(), &fakeEventSink{})

	assert.False(t, writer.DeleteLink(context.Background(), "tenant-1", threadRef, contactRef))
}

func TestListLinksReturnsOutgoingEdges(t *testing.T) {
	store := newFakeItemStore()
	writer := NewWriter(noopLogger(), store, &fakeEventSink{})

	require.True(t, writer.CreateLink(context.Background(), "tenant-1", threadRef, contactRef, "", false))

	fromThread, err := writer.ListLinks(context.Background(), "tenant-1", threadRef, 10)
	require.NoError(t, err)
	require.Len(t, fromThread, 1)
	assert.Equal(t, threadRef.ID, fromThread[0].SourceID)
	assert.Equal(t, contactRef.ID, fromThread[0].TargetRef)

	fromContact, err := writer.ListLinks(context.Background(), "tenant-1", contactRef, 10)
	require.NoError(t, err)
	require.Len(t, fromContact, 1)
	assert.Equal(t, contactRef.ID, fromContact[0].SourceID)

	// other tenants see nothing
	other, err := writer.ListLinks(context.Background(), "tenant-2", threadRef, 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}
