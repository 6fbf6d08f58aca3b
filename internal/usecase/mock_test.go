package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
	"github.com/hszk-dev/mediagate/internal/transcoder"
)

// mockContentStore keeps objects in memory unless a func field overrides
// the operation.
type mockContentStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	putFn       func(ctx context.Context, bucket, key string) error
	listKeysFn  func(ctx context.Context, bucket, prefix string) ([]string, error)
	deleteFn    func(ctx context.Context, bucket, key string) error
	signedURLFn func(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

func newMockContentStore() *mockContentStore {
	return &mockContentStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func objectID(bucket, key string) string {
	return bucket + "/" + key
}

func (m *mockContentStore) Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	if m.putFn != nil {
		if err := m.putFn(ctx, bucket, key); err != nil {
			return err
		}
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch for %s: %d != %d", key, len(data), size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectID(bucket, key)] = data
	m.types[objectID(bucket, key)] = contentType
	return nil
}

func (m *mockContentStore) PutFile(ctx context.Context, bucket, key, filePath, contentType string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	return m.Put(ctx, bucket, key, f, info.Size(), contentType)
}

func (m *mockContentStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[objectID(bucket, key)]
	if !ok {
		return nil, repository.ErrObjectNotFound
	}
	return data, nil
}

func (m *mockContentStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[objectID(bucket, key)]
	return ok, nil
}

func (m *mockContentStore) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	if m.listKeysFn != nil {
		return m.listKeysFn(ctx, bucket, prefix)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for id := range m.objects {
		key, ok := strings.CutPrefix(id, bucket+"/")
		if ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *mockContentStore) Delete(ctx context.Context, bucket, key string) error {
	if m.deleteFn != nil {
		if err := m.deleteFn(ctx, bucket, key); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectID(bucket, key))
	return nil
}

func (m *mockContentStore) SignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	if m.signedURLFn != nil {
		return m.signedURLFn(ctx, bucket, key, expiry)
	}
	return fmt.Sprintf("https://store.example/%s/%s?expires=%d", bucket, key, int(expiry.Seconds())), nil
}

func (m *mockContentStore) count(bucket, prefix string) int {
	keys, _ := m.ListKeys(context.Background(), bucket, prefix)
	return len(keys)
}

// mockRegistry keeps media and users in memory unless overridden.
type mockRegistry struct {
	mu    sync.Mutex
	media map[uuid.UUID]*model.MediaAsset
	users map[string]*model.UserAccount

	saveMediaFn func(ctx context.Context, asset *model.MediaAsset) error
	loadMediaFn func(ctx context.Context, id uuid.UUID) (*model.MediaAsset, error)
	saveUserFn  func(ctx context.Context, user *model.UserAccount) error
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		media: make(map[uuid.UUID]*model.MediaAsset),
		users: make(map[string]*model.UserAccount),
	}
}

func (m *mockRegistry) SaveMedia(ctx context.Context, asset *model.MediaAsset) error {
	if m.saveMediaFn != nil {
		return m.saveMediaFn(ctx, asset)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *asset
	m.media[asset.ID] = &cp
	return nil
}

func (m *mockRegistry) LoadMedia(ctx context.Context, id uuid.UUID) (*model.MediaAsset, error) {
	if m.loadMediaFn != nil {
		return m.loadMediaFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	asset, ok := m.media[id]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	cp := *asset
	return &cp, nil
}

func (m *mockRegistry) SaveUser(ctx context.Context, user *model.UserAccount) error {
	if m.saveUserFn != nil {
		return m.saveUserFn(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockRegistry) LoadUser(ctx context.Context, id string) (*model.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *mockRegistry) SaveCourse(ctx context.Context, course *model.Course) error { return nil }

func (m *mockRegistry) LoadCourse(ctx context.Context, id string) (*model.Course, error) {
	return nil, repository.ErrDocumentNotFound
}

func (m *mockRegistry) SavePlan(ctx context.Context, plan *model.SubscriptionPlan) error { return nil }

func (m *mockRegistry) LoadPlan(ctx context.Context, id string) (*model.SubscriptionPlan, error) {
	return nil, repository.ErrDocumentNotFound
}

func (m *mockRegistry) LoadDocument(ctx context.Context, collection repository.Collection, id string) ([]byte, error) {
	return nil, repository.ErrDocumentNotFound
}

func (m *mockRegistry) ListIDs(ctx context.Context, collection repository.Collection) ([]string, error) {
	return nil, nil
}

func (m *mockRegistry) mediaCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.media)
}

// mockTranscoder writes fake HLS output by default.
type mockTranscoder struct {
	mu    sync.Mutex
	calls []string

	probeDurationFn     func(ctx context.Context, inputPath string) (float64, error)
	produceRenditionsFn func(ctx context.Context, inputPath, outputDir string, renditions []transcoder.Rendition) ([]transcoder.RenditionOutput, error)
	extractThumbnailFn  func(ctx context.Context, inputPath, outputPath string, offset time.Duration) error
}

func (m *mockTranscoder) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockTranscoder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockTranscoder) ProbeDuration(ctx context.Context, inputPath string) (float64, error) {
	m.record("probe")
	if m.probeDurationFn != nil {
		return m.probeDurationFn(ctx, inputPath)
	}
	return 12.5, nil
}

func (m *mockTranscoder) ProduceRenditions(ctx context.Context, inputPath, outputDir string, renditions []transcoder.Rendition) ([]transcoder.RenditionOutput, error) {
	m.record("renditions")
	if m.produceRenditionsFn != nil {
		return m.produceRenditionsFn(ctx, inputPath, outputDir, renditions)
	}
	return writeFakeRenditions(outputDir, renditions, 2)
}

func (m *mockTranscoder) ExtractThumbnail(ctx context.Context, inputPath, outputPath string, offset time.Duration) error {
	m.record("thumbnail")
	if m.extractThumbnailFn != nil {
		return m.extractThumbnailFn(ctx, inputPath, outputPath, offset)
	}
	return os.WriteFile(outputPath, []byte("jpeg"), 0644)
}

// writeFakeRenditions creates a playlist and segments for each rendition.
func writeFakeRenditions(outputDir string, renditions []transcoder.Rendition, segments int) ([]transcoder.RenditionOutput, error) {
	outputs := make([]transcoder.RenditionOutput, 0, len(renditions))
	for _, r := range renditions {
		dir := filepath.Join(outputDir, r.Label)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		out := transcoder.RenditionOutput{Rendition: r, PlaylistPath: filepath.Join(dir, model.PlaylistFile)}
		if err := os.WriteFile(out.PlaylistPath, []byte("#EXTM3U\n"), 0644); err != nil {
			return nil, err
		}
		for i := 0; i < segments; i++ {
			p := filepath.Join(dir, fmt.Sprintf("segment_%03d.ts", i))
			if err := os.WriteFile(p, []byte("ts-data"), 0644); err != nil {
				return nil, err
			}
			out.SegmentPaths = append(out.SegmentPaths, p)
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// mockAttemptRepository keeps attempts in memory.
type mockAttemptRepository struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]model.IngestAttempt

	createFn func(ctx context.Context, attempt *model.IngestAttempt) error
}

func newMockAttemptRepository() *mockAttemptRepository {
	return &mockAttemptRepository{attempts: make(map[uuid.UUID]model.IngestAttempt)}
}

func (m *mockAttemptRepository) Create(ctx context.Context, attempt *model.IngestAttempt) error {
	if m.createFn != nil {
		return m.createFn(ctx, attempt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[attempt.ID] = *attempt
	return nil
}

func (m *mockAttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.IngestAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, repository.ErrAttemptNotFound
	}
	return &a, nil
}

func (m *mockAttemptRepository) Update(ctx context.Context, attempt *model.IngestAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[attempt.ID]; !ok {
		return repository.ErrAttemptNotFound
	}
	m.attempts[attempt.ID] = *attempt
	return nil
}

func (m *mockAttemptRepository) ListByStatus(ctx context.Context, status model.AttemptStatus, limit int) ([]*model.IngestAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.IngestAttempt
	for _, a := range m.attempts {
		if a.Status == status {
			cp := a
			out = append(out, &cp)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockAttemptRepository) byAsset(assetID uuid.UUID) *model.IngestAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.AssetID == assetID {
			cp := a
			return &cp
		}
	}
	return nil
}

func (m *mockAttemptRepository) only() *model.IngestAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		cp := a
		return &cp
	}
	return nil
}

// mockCleanupQueue records published tasks.
type mockCleanupQueue struct {
	mu    sync.Mutex
	tasks []repository.CleanupTask

	publishFn func(ctx context.Context, task repository.CleanupTask) error
}

func (m *mockCleanupQueue) PublishCleanupTask(ctx context.Context, task repository.CleanupTask) error {
	if m.publishFn != nil {
		return m.publishFn(ctx, task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockCleanupQueue) ConsumeCleanupTasks(ctx context.Context, handler func(task repository.CleanupTask) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockCleanupQueue) Close() error { return nil }

func (m *mockCleanupQueue) published() []repository.CleanupTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.CleanupTask(nil), m.tasks...)
}
