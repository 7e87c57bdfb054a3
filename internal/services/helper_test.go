package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/catalogix/backend/internal/config"
	"github.com/catalogix/backend/internal/models"
	"github.com/catalogix/backend/internal/storage"
)

type testStack struct {
	db       *gorm.DB
	cfg      *config.Config
	store    storage.Storage
	storeDir string
	tenants  *TenantService
	reuse    *ReuseService
	ingest   *IngestService
	purge    *PurgeService
}

func newTestConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		MaxUploadBytes: 10 * 1024 * 1024,
		Presets: map[string]config.Preset{
			"thumb": {Width: 200, Height: 200},
			"card":  {Width: 600, Height: 400},
			"zoom":  {Width: 1600, Height: 1600},
		},
		RenditionQuality:      85,
		PhashSize:             8,
		PhashHammingThreshold: 5,
		PurgeConfirmToken:     "DELETE_CONFIRMED",
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database instance: %v", err)
	}
	// A single writer keeps concurrent ingest tests free of SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err := models.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	cfg := newTestConfig()
	db := newTestDB(t)
	storeDir := t.TempDir()
	store, err := storage.NewLocalStorage(storeDir)
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	tenants := NewTenantService(db)
	reuse := NewReuseService(db, cfg)
	return &testStack{
		db:       db,
		cfg:      cfg,
		store:    store,
		storeDir: storeDir,
		tenants:  tenants,
		reuse:    reuse,
		ingest:   NewIngestService(db, cfg, store, tenants, reuse),
		purge:    NewPurgeService(db, cfg, store),
	}
}

func (ts *testStack) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := ts.db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}

func (ts *testStack) countStorageObjects(t *testing.T) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(ts.storeDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk storage dir: %v", err)
	}
	return count
}

func renditionsByPreset(a *models.Asset) map[string]models.Rendition {
	byPreset := make(map[string]models.Rendition, len(a.Renditions))
	for _, r := range a.Renditions {
		byPreset[r.Preset] = r
	}
	return byPreset
}

func solidImagePNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return encodePNG(t, img)
}

// splitImagePNG encodes an image whose first half is black and second half
// white, split vertically or horizontally. The two orientations are far
// apart in perceptual-hash space.
func splitImagePNG(t *testing.T, w, h int, vertical bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{A: 255}
			if (vertical && x >= w/2) || (!vertical && y >= h/2) {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return encodePNG(t, img)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}
