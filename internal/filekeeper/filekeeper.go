package filekeeper

import (
	"context"
	"encoding/json"
	"os"

	"github.com/mellosd/storefront/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Log interface {
	Info(string, ...zap.Field)
}

// FileKeeper serves the catalog from a static JSON file, an array of
// {title, price, image_url, link} objects.
type FileKeeper struct {
	path func() string
	log  Log
}

func NewFileKeeper(path func() string, log Log) *FileKeeper {
	return &FileKeeper{
		path: path,
		log:  log,
	}
}

func (kp *FileKeeper) LoadProducts(_ context.Context) ([]models.Product, error) {
	data, err := os.ReadFile(kp.path())
	if err != nil {
		return nil, errors.Wrap(err, "read catalog file")
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, errors.Wrap(err, "parse catalog file")
	}

	kp.log.Info("catalog file loaded", zap.String("path", kp.path()), zap.Int("products", len(products)))
	return products, nil
}

func (kp *FileKeeper) Ping(_ context.Context) bool {
	_, err := os.Stat(kp.path())
	return err == nil
}

func (kp *FileKeeper) Close() bool {
	return true
}
