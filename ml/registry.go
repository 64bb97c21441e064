package ml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// ErrModelNotFound is returned when a prediction names a model that is
// not loaded.
var ErrModelNotFound = errors.New("model not found")

// Prediction is the outcome of running one classifier over a feature
// vector. ConfidenceScore is a percentage.
type Prediction struct {
	ModelName       string  `json:"model_name"`
	HasHeartDisease bool    `json:"has_heart_disease"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// Registry maps model type names to loaded classifiers. It is populated
// by scanning a directory for *.model files and kept current by an
// optional fsnotify watcher, so a training run that rewrites a model
// file is picked up without a restart.
type Registry struct {
	dir string
	log *zap.Logger

	mu     sync.RWMutex
	models map[string]Classifier

	cache *lru.Cache[string, Prediction]

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// OpenRegistry scans dir for saved models. The directory must exist;
// individual files that fail to load are logged and skipped.
func OpenRegistry(dir string, cacheSize int, log *zap.Logger) (*Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("model dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("model dir %s is not a directory", dir)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cacheSize <= 0 {
		cacheSize = 1024
	}

	cache, err := lru.New[string, Prediction](cacheSize)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		dir:    dir,
		log:    log,
		models: make(map[string]Classifier),
		cache:  cache,
		done:   make(chan struct{}),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".model") {
			continue
		}
		r.loadFile(filepath.Join(dir, entry.Name()))
	}

	return r, nil
}

// loadFile loads one *.model file; the filename stem is the model type.
func (r *Registry) loadFile(path string) {
	name := strings.TrimSuffix(filepath.Base(path), ".model")
	model, err := LoadModel(name, path)
	if err != nil {
		r.log.Warn("skipping model file",
			zap.String("path", path),
			zap.Error(err))
		return
	}

	r.mu.Lock()
	r.models[name] = model
	r.mu.Unlock()
	r.cache.Purge()

	r.log.Info("loaded model",
		zap.String("model", name),
		zap.String("path", path))
}

func (r *Registry) remove(name string) {
	r.mu.Lock()
	_, ok := r.models[name]
	delete(r.models, name)
	r.mu.Unlock()
	if ok {
		r.cache.Purge()
		r.log.Info("removed model", zap.String("model", name))
	}
}

// Names returns the loaded model type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of loaded models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// Predict runs the named model over a feature vector. Results are
// memoized in an LRU cache keyed by model and features.
func (r *Registry) Predict(name string, features []float64) (Prediction, error) {
	r.mu.RLock()
	model, ok := r.models[name]
	r.mu.RUnlock()
	if !ok {
		return Prediction{}, fmt.Errorf("%w: %q", ErrModelNotFound, name)
	}

	key := cacheKey(name, features)
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	label, confidence, err := model.Predict(features)
	if err != nil {
		return Prediction{}, fmt.Errorf("model %s: %w", name, err)
	}

	prediction := Prediction{
		ModelName:       name,
		HasHeartDisease: label > 0,
		ConfidenceScore: confidence * 100,
	}
	r.cache.Add(key, prediction)
	return prediction, nil
}

// PredictAll fans out over every loaded model concurrently. A model
// that fails is logged and omitted from the results.
func (r *Registry) PredictAll(features []float64) []Prediction {
	names := r.Names()

	var wg sync.WaitGroup
	results := make([]*Prediction, len(names))
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			prediction, err := r.Predict(name, features)
			if err != nil {
				r.log.Warn("prediction failed",
					zap.String("model", name),
					zap.Error(err))
				return
			}
			results[i] = &prediction
		}(i, name)
	}
	wg.Wait()

	predictions := make([]Prediction, 0, len(names))
	for _, result := range results {
		if result != nil {
			predictions = append(predictions, *result)
		}
	}
	return predictions
}

// Watch reloads models as files change under the registry directory
// until ctx is cancelled or the registry is closed.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return err
	}
	r.watcher = watcher

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".model") {
					continue
				}
				switch {
				case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
					r.loadFile(event.Name)
				case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
					r.remove(strings.TrimSuffix(filepath.Base(event.Name), ".model"))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.log.Warn("model watcher error", zap.Error(err))
			case <-ctx.Done():
				return
			case <-r.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the watcher, if any.
func (r *Registry) Close() {
	close(r.done)
}

func cacheKey(name string, features []float64) string {
	var b strings.Builder
	b.WriteString(name)
	for _, value := range features {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
	}
	return b.String()
}
