package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warepix/warepix/internal/domain"
	"github.com/warepix/warepix/internal/imaging"
	"github.com/warepix/warepix/internal/store"
)

// Event topics published on every successful mutation. UI collaborators
// subscribe to these instead of being wired into the core.
const (
	TopicProductSaved   = "catalog:product:saved"
	TopicProductDeleted = "catalog:product:deleted"
	TopicProductsWiped  = "catalog:products:wiped"
	TopicOrderSaved     = "catalog:order:saved"
	TopicOrderDeleted   = "catalog:order:deleted"
	TopicImageStored    = "catalog:image:stored"
)

// ImageStore is the blob-store surface the façade needs.
type ImageStore interface {
	Put(ctx context.Context, code, supplier, file string) error
	Get(ctx context.Context, code, supplier string) (*domain.ImageRecord, error)
	GetAll(ctx context.Context) ([]domain.ImageRecord, error)
	ListByCode(ctx context.Context, code string) ([]domain.ImageRecord, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Rekey(ctx context.Context, oldCode, oldSupplier, newCode, newSupplier string) error
}

// RecordRepository is the record-store surface the façade needs.
type RecordRepository interface {
	UpsertProduct(p *domain.Product) error
	GetProduct(id string) (*domain.Product, error)
	DeleteProduct(id string) error
	ListProducts(filter store.ProductFilter) ([]domain.Product, error)
	ClearProducts() error

	UpsertOrder(o *domain.Order) error
	GetOrder(id string) (*domain.Order, error)
	DeleteOrder(id string) error
	ListOrders(filter store.OrderFilter) ([]domain.Order, error)
	UpdateOrderField(id, field, value string) error
}

// Service is the repository façade over both stores. Every operation that
// touches the composite key on one side mutates the other side with it, so
// referential consistency is a contract here instead of call-site discipline.
type Service struct {
	blobs   ImageStore
	records RecordRepository
	bus     EventBus.Bus
	pool    *ants.Pool
}

func New(blobs ImageStore, records RecordRepository, bus EventBus.Bus, workers int) (*Service, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &Service{blobs: blobs, records: records, bus: bus, pool: pool}, nil
}

// Release frees the compression worker pool.
func (s *Service) Release() {
	s.pool.Release()
}

// Bus exposes the event bus for collaborators to subscribe on.
func (s *Service) Bus() EventBus.Bus {
	return s.bus
}

// ProductFields is the full editable field set of a product form.
type ProductFields struct {
	Name   string
	Cost   string
	Price  string
	Size   string
	Remark string
}

// SaveNewItem creates a product and, when imageDataURL is non-empty, its
// image under the same composite key. An existing key is rejected, new-item
// creation never overwrites.
func (s *Service) SaveNewItem(ctx context.Context, p domain.Product, imageDataURL string) error {
	if strings.TrimSpace(p.Code) == "" || strings.TrimSpace(p.Supplier) == "" {
		return domain.ValidationErrorf("code and supplier are required")
	}
	existing, err := s.records.GetProduct(p.Key())
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ValidationErrorf("product %s already exists", p.Key())
	}
	if err := s.records.UpsertProduct(&p); err != nil {
		return err
	}
	if imageDataURL != "" {
		if err := s.blobs.Put(ctx, p.Code, p.Supplier, imageDataURL); err != nil {
			return err
		}
		s.bus.Publish(TopicImageStored, p.Key())
	}
	s.bus.Publish(TopicProductSaved, p.Key())
	return nil
}

// CompressAndStore compresses raw image bytes to the size target derived
// from the original size and stores the result under code+supplier.
func (s *Service) CompressAndStore(ctx context.Context, code, supplier string, raw []byte) (string, error) {
	dataURL, err := imaging.CompressDataURL(raw, imaging.TargetFor(int64(len(raw))))
	if err != nil {
		return "", err
	}
	if err := s.blobs.Put(ctx, code, supplier, dataURL); err != nil {
		return "", err
	}
	s.bus.Publish(TopicImageStored, domain.CompositeKey(code, supplier))
	return dataURL, nil
}

// UploadForCode compresses one source image and stores it for every
// supplier variant of the code known to the record store. A code without
// any product record gets the image under the bare composite key.
func (s *Service) UploadForCode(ctx context.Context, code string, raw []byte) error {
	dataURL, err := imaging.CompressDataURL(raw, imaging.TargetFor(int64(len(raw))))
	if err != nil {
		return err
	}
	products, err := s.records.ListProducts(store.ProductFilter{Code: code})
	if err != nil {
		return err
	}
	suppliers := []string{""}
	if len(products) > 0 {
		suppliers = suppliers[:0]
		for _, p := range products {
			suppliers = append(suppliers, p.Supplier)
		}
	}
	for _, supplier := range suppliers {
		if err := s.blobs.Put(ctx, code, supplier, dataURL); err != nil {
			return err
		}
		s.bus.Publish(TopicImageStored, domain.CompositeKey(code, supplier))
	}
	return nil
}

// BatchUpload compresses and stores many files concurrently on the worker
// pool. Files are keyed by product code (the file name without extension).
// Per-file failures are logged and counted, never aborting the batch.
func (s *Service) BatchUpload(ctx context.Context, files map[string][]byte) *domain.BatchResult {
	result := domain.NewBatchResult()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for code, raw := range files {
		code, raw := code, raw
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if err := s.UploadForCode(ctx, code, raw); err != nil {
				zap.L().Error("batch upload item failed", zap.String("code", code), zap.Error(err))
				mu.Lock()
				result.Fail(code, err)
				mu.Unlock()
				return
			}
			mu.Lock()
			result.Ok()
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			result.Fail(code, err)
			mu.Unlock()
		}
	}
	wg.Wait()

	zap.L().Info("batch upload finished", zap.String("summary", result.Summary()))
	return result
}

// BatchRename re-keys every given product to newCode/newSupplier with the
// merged fields, migrating each image alongside. Single-item edit is the
// same operation with one id. Items keep being processed after a failed
// image migration.
func (s *Service) BatchRename(ctx context.Context, ids []string, newCode, newSupplier string, fields ProductFields) *domain.BatchResult {
	result := domain.NewBatchResult()

	for _, id := range ids {
		old, err := s.records.GetProduct(id)
		if err != nil {
			result.Fail(id, err)
			continue
		}
		if old == nil {
			result.Fail(id, domain.ValidationErrorf("product %s not found", id))
			continue
		}

		code, supplier := newCode, newSupplier
		if code == "" {
			code = old.Code
		}
		if supplier == "" {
			supplier = old.Supplier
		}

		next := domain.Product{
			Code:      code,
			Supplier:  supplier,
			Name:      fields.Name,
			Cost:      fields.Cost,
			Price:     fields.Price,
			Size:      fields.Size,
			Remark:    fields.Remark,
			Timestamp: time.Now(),
		}

		// The composite key changes with code/supplier, so the old record
		// goes away and the merged one lands under the new key.
		if err := s.records.DeleteProduct(id); err != nil {
			result.Fail(id, err)
			continue
		}
		if err := s.records.UpsertProduct(&next); err != nil {
			result.Fail(id, err)
			continue
		}

		if err := s.blobs.Rekey(ctx, old.Code, old.Supplier, code, supplier); err != nil {
			zap.L().Error("image rekey failed, record renamed anyway",
				zap.String("from", id),
				zap.String("to", next.Key()),
				zap.Error(err))
			result.Fail(id, err)
			continue
		}

		s.bus.Publish(TopicProductSaved, next.Key())
		result.Ok()
	}

	zap.L().Info("batch rename finished", zap.String("summary", result.Summary()))
	return result
}

// DeleteItems removes products and their images concurrently, best-effort:
// a failed item never rolls back or blocks the others.
func (s *Service) DeleteItems(ctx context.Context, ids []string) *domain.BatchResult {
	result := domain.NewBatchResult()
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(8)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := s.deleteItem(ctx, id); err != nil {
				zap.L().Error("batch delete item failed", zap.String("id", id), zap.Error(err))
				mu.Lock()
				result.Fail(id, err)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.Ok()
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("batch delete finished", zap.String("summary", result.Summary()))
	return result
}

func (s *Service) deleteItem(ctx context.Context, id string) error {
	if err := s.records.DeleteProduct(id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, id); err != nil {
		return err
	}
	s.bus.Publish(TopicProductDeleted, id)
	return nil
}

// WipeProducts clears the product mapping and the image store together.
// Orders are kept.
func (s *Service) WipeProducts(ctx context.Context) error {
	if err := s.records.ClearProducts(); err != nil {
		return err
	}
	if err := s.blobs.Clear(ctx); err != nil {
		return err
	}
	s.bus.Publish(TopicProductsWiped)
	return nil
}

// SaveOrder validates and stores an order, minting its id when new.
func (s *Service) SaveOrder(ctx context.Context, o *domain.Order) error {
	if err := s.records.UpsertOrder(o); err != nil {
		return err
	}
	s.bus.Publish(TopicOrderSaved, o.ID)
	return nil
}

// DeleteOrders removes the given orders, log-and-continue per item.
func (s *Service) DeleteOrders(ctx context.Context, ids []string) *domain.BatchResult {
	result := domain.NewBatchResult()
	for _, id := range ids {
		if err := s.records.DeleteOrder(id); err != nil {
			zap.L().Error("order delete failed", zap.String("order_id", id), zap.Error(err))
			result.Fail(id, err)
			continue
		}
		s.bus.Publish(TopicOrderDeleted, id)
		result.Ok()
	}
	return result
}

// ImportProducts upserts pre-validated spreadsheet rows. Rows without a
// stored image get the placeholder so they show up on the grid; existing
// images are never overwritten by an import.
func (s *Service) ImportProducts(ctx context.Context, products []domain.Product) *domain.BatchResult {
	result := domain.NewBatchResult()
	placeholder := imaging.PlaceholderDataURL()

	for i := range products {
		p := products[i]
		if err := s.records.UpsertProduct(&p); err != nil {
			zap.L().Error("import row failed", zap.String("key", p.Key()), zap.Error(err))
			result.Fail(p.Key(), err)
			continue
		}
		existing, err := s.blobs.Get(ctx, p.Code, p.Supplier)
		if err == nil && existing == nil {
			if err := s.blobs.Put(ctx, p.Code, p.Supplier, placeholder); err != nil {
				zap.L().Warn("placeholder image write failed", zap.String("key", p.Key()), zap.Error(err))
			}
		}
		s.bus.Publish(TopicProductSaved, p.Key())
		result.Ok()
	}

	zap.L().Info("product import finished", zap.String("summary", result.Summary()))
	return result
}

// ProductVersion pairs one supplier's variant of a code with its image, for
// the price comparison view.
type ProductVersion struct {
	Product domain.Product
	Image   string
}

// PriceCompare lists every variant of a code across suppliers with its
// stored image.
func (s *Service) PriceCompare(ctx context.Context, code string) ([]ProductVersion, error) {
	products, err := s.records.ListProducts(store.ProductFilter{Code: code})
	if err != nil {
		return nil, err
	}
	images, err := s.blobs.ListByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]string, len(images))
	for _, img := range images {
		byKey[img.ID] = img.File
	}

	versions := make([]ProductVersion, 0, len(products))
	for _, p := range products {
		versions = append(versions, ProductVersion{Product: p, Image: byKey[p.Key()]})
	}
	return versions, nil
}
