// Package registry implements the metadata registry on top of the content store.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
)

const jsonContentType = "application/json"

// StoreRegistry keeps every document as a JSON object in the content store.
//
// Layout:
//
//	users          {id}.json
//	subscriptions  {id}.json
//	courses        {id}/metadata.json
//	videos, audio  {id}/metadata.json
type StoreRegistry struct {
	store   repository.ContentStore
	buckets repository.Buckets
}

// Compile-time verification that StoreRegistry implements MetadataRegistry.
var _ repository.MetadataRegistry = (*StoreRegistry)(nil)

// NewStoreRegistry creates a registry over store.
func NewStoreRegistry(store repository.ContentStore, buckets repository.Buckets) *StoreRegistry {
	return &StoreRegistry{
		store:   store,
		buckets: buckets,
	}
}

func (r *StoreRegistry) SaveMedia(ctx context.Context, asset *model.MediaAsset) error {
	bucket := r.buckets.ForFamily(asset.Family())
	return r.putJSON(ctx, bucket, model.MetadataKey(asset.ID.String()), asset)
}

func (r *StoreRegistry) LoadMedia(ctx context.Context, id uuid.UUID) (*model.MediaAsset, error) {
	data, err := r.LoadDocument(ctx, repository.CollectionMedia, id.String())
	if err != nil {
		return nil, err
	}
	var asset model.MediaAsset
	if err := json.Unmarshal(data, &asset); err != nil {
		return nil, fmt.Errorf("decode media %s: %w", id, err)
	}
	return &asset, nil
}

func (r *StoreRegistry) SaveUser(ctx context.Context, user *model.UserAccount) error {
	if err := validateID(user.ID); err != nil {
		return err
	}
	return r.putJSON(ctx, r.buckets.Users, user.ID+".json", user)
}

func (r *StoreRegistry) LoadUser(ctx context.Context, id string) (*model.UserAccount, error) {
	var user model.UserAccount
	if err := r.loadInto(ctx, repository.CollectionUser, id, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *StoreRegistry) SaveCourse(ctx context.Context, course *model.Course) error {
	if err := validateID(course.ID); err != nil {
		return err
	}
	return r.putJSON(ctx, r.buckets.Courses, model.MetadataKey(course.ID), course)
}

func (r *StoreRegistry) LoadCourse(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	if err := r.loadInto(ctx, repository.CollectionCourse, id, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *StoreRegistry) SavePlan(ctx context.Context, plan *model.SubscriptionPlan) error {
	if err := validateID(plan.ID); err != nil {
		return err
	}
	return r.putJSON(ctx, r.buckets.Subscriptions, plan.ID+".json", plan)
}

func (r *StoreRegistry) LoadPlan(ctx context.Context, id string) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan
	if err := r.loadInto(ctx, repository.CollectionSubscriptionPlan, id, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// LoadDocument returns the raw document. Media documents are looked up in
// every media bucket in turn.
func (r *StoreRegistry) LoadDocument(ctx context.Context, collection repository.Collection, id string) ([]byte, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	buckets, key, err := r.locate(collection, id)
	if err != nil {
		return nil, err
	}

	for _, bucket := range buckets {
		data, err := r.store.Get(ctx, bucket, key)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, repository.ErrObjectNotFound) {
			return nil, fmt.Errorf("load %s %s: %w", collection, id, err)
		}
	}
	return nil, fmt.Errorf("%w: %s %s", repository.ErrDocumentNotFound, collection, id)
}

// ListIDs enumerates a collection. Prefix-keyed collections only report ids
// that have a metadata document, so orphaned renditions are never listed.
func (r *StoreRegistry) ListIDs(ctx context.Context, collection repository.Collection) ([]string, error) {
	var buckets []string
	flat := false
	switch collection {
	case repository.CollectionUser:
		buckets, flat = []string{r.buckets.Users}, true
	case repository.CollectionSubscriptionPlan:
		buckets, flat = []string{r.buckets.Subscriptions}, true
	case repository.CollectionCourse:
		buckets = []string{r.buckets.Courses}
	case repository.CollectionMedia:
		buckets = r.buckets.Media()
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	var ids []string
	for _, bucket := range buckets {
		keys, err := r.store.ListKeys(ctx, bucket, "")
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		for _, key := range keys {
			if id, ok := documentID(key, flat); ok {
				ids = append(ids, id)
			}
		}
	}

	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// documentID extracts the id from a document key.
func documentID(key string, flat bool) (string, bool) {
	if flat {
		if strings.Contains(key, "/") || !strings.HasSuffix(key, ".json") {
			return "", false
		}
		id := strings.TrimSuffix(key, ".json")
		return id, id != ""
	}
	dir, file := path.Split(key)
	if file != model.MetadataFile {
		return "", false
	}
	id := strings.TrimSuffix(dir, "/")
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// locate maps a document to the buckets it may live in and its key.
func (r *StoreRegistry) locate(collection repository.Collection, id string) ([]string, string, error) {
	switch collection {
	case repository.CollectionUser:
		return []string{r.buckets.Users}, id + ".json", nil
	case repository.CollectionSubscriptionPlan:
		return []string{r.buckets.Subscriptions}, id + ".json", nil
	case repository.CollectionCourse:
		return []string{r.buckets.Courses}, model.MetadataKey(id), nil
	case repository.CollectionMedia:
		return r.buckets.Media(), model.MetadataKey(id), nil
	default:
		return nil, "", fmt.Errorf("unknown collection %q", collection)
	}
}

func (r *StoreRegistry) loadInto(ctx context.Context, collection repository.Collection, id string, v any) error {
	data, err := r.LoadDocument(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s %s: %w", collection, id, err)
	}
	return nil
}

func (r *StoreRegistry) putJSON(ctx context.Context, bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Put(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), jsonContentType); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("%w: %q", repository.ErrInvalidDocumentID, id)
	}
	return nil
}
