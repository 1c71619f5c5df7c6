package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	pkgAuth "github.com/angelmondragon/library-backend/pkg/auth"
	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/metrics"
	"github.com/angelmondragon/library-backend/pkg/pagination"
	"github.com/angelmondragon/library-backend/pkg/storage"
)

const (
	SearchLimit          = 50
	DefaultTopLimit      = 10
	DefaultCategoryLimit = 20
	MaxTopLimit          = 100
	downloadLogLimit     = 100
	bytesPerMB           = 1024 * 1024
)

const (
	eventUpload   = "upload"
	eventView     = "view"
	eventDownload = "download"
	eventReview   = "review"
	eventDelete   = "delete"
)

// Service manages the digital content catalogue.
type Service interface {
	Upload(ctx context.Context, actor pkgAuth.Principal, in UploadInput) (*ContentDTO, error)
	List(ctx context.Context, in ListInput) (*ListResult, error)
	Search(ctx context.Context, in SearchInput) ([]ContentDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ContentDTO, error)
	Download(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID) (*Download, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateContentRequest) (*ContentDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Review(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID, req ReviewRequest) (*ContentDTO, error)
	StorageInfo(ctx context.Context) (*StorageReport, error)
	Trending(ctx context.Context, limit int) ([]ContentDTO, error)
	Recommended(ctx context.Context, limit int) ([]ContentDTO, error)
	ByCategory(ctx context.Context, category, sortBy string, limit int) ([]ContentDTO, error)
	MyDownloads(ctx context.Context, userID uuid.UUID) ([]DownloadDTO, error)
}

// UploadInput is a validated upload: descriptive metadata plus the file stream.
type UploadInput struct {
	Metadata Metadata
	FileName string
	Size     int64
	File     io.Reader
}

// ListInput filters and pages the published catalogue.
type ListInput struct {
	Filters    Filters
	SortBy     string
	Pagination pagination.Params
}

// ListResult is one page of content.
type ListResult struct {
	Items []ContentDTO
	Meta  pagination.Meta
}

// SearchInput is a free-text query with optional filters.
type SearchInput struct {
	Query   string
	Filters *SearchFilters
	SortBy  string
}

// Download is an open file stream. Callers must close Body.
type Download struct {
	Content *ContentDTO
	Body    io.ReadCloser
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the content dependencies.
type ServiceParams struct {
	Repo           *Repository
	DB             txRunner
	Store          storage.Store
	Logger         *logger.Logger
	Metrics        *metrics.LibraryMetrics
	MaxUploadBytes int64
	QuotaMB        int
	CacheTTL       time.Duration
	Clock          func() time.Time
}

type service struct {
	repo      *Repository
	tx        txRunner
	store     storage.Store
	logg      *logger.Logger
	metrics   *metrics.LibraryMetrics
	maxUpload int64
	quotaMB   int
	hot       *ttlcache.Cache[string, []ContentDTO]
	now       func() time.Time
}

// NewService constructs the content service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("content repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &service{
		repo:      params.Repo,
		tx:        params.DB,
		store:     params.Store,
		logg:      logg,
		metrics:   params.Metrics,
		maxUpload: params.MaxUploadBytes,
		quotaMB:   params.QuotaMB,
		hot: ttlcache.New(
			ttlcache.WithTTL[string, []ContentDTO](ttl),
			ttlcache.WithDisableTouchOnHit[string, []ContentDTO](),
		),
		now:       clock,
	}, nil
}

func (s *service) Upload(ctx context.Context, actor pkgAuth.Principal, in UploadInput) (*ContentDTO, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Only librarian can access this route")
	}
	if in.File == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No file uploaded")
	}
	meta := in.Metadata
	item, err := s.newItem(meta)
	if err != nil {
		return nil, err
	}
	if in.Size > s.maxUpload {
		return nil, pkgerrors.New(pkgerrors.CodeTooLarge,
			fmt.Sprintf("File size exceeds maximum limit of %dMB", s.maxUpload/bytesPerMB))
	}
	if in.Size <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Uploaded file is empty")
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(in.File, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	head = head[:n]
	ft, ok := detectFileType(head, in.FileName)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"File type not allowed. Allowed types: "+allowedExtensions())
	}

	if err := s.checkIdentifier(ctx, "isbn", "ISBN", item.ISBN); err != nil {
		return nil, err
	}
	if err := s.checkIdentifier(ctx, "issn", "ISSN", item.ISSN); err != nil {
		return nil, err
	}

	key := storage.NewKey(string(item.Type), ft.Ext)
	if err := s.store.Put(ctx, key, io.MultiReader(bytes.NewReader(head), in.File), in.Size, ft.MIME); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store file")
	}

	item.FileName = strings.TrimSpace(in.FileName)
	item.FileKey = key
	item.FileMimeType = ft.MIME
	item.FileSize = in.Size
	item.UploadedBy = actor.UserID
	if err := s.repo.Create(ctx, item); err != nil {
		cleanupErr := s.store.Delete(ctx, key)
		if cleanupErr != nil {
			s.logg.Error(ctx, "content.upload_cleanup_failed", multierr.Append(err, cleanupErr))
		}
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "Content with this identifier already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, multierr.Append(err, cleanupErr), "create content")
	}

	s.invalidate()
	s.metrics.RecordContentEvent(eventUpload)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"content_id": item.ID.String(),
		"key":        key,
		"size":       in.Size,
		"mime":       ft.MIME,
	})
	s.logg.Info(logCtx, "content.uploaded")
	return FromModel(item), nil
}

func (s *service) newItem(meta Metadata) (*models.Content, error) {
	title := strings.TrimSpace(meta.Title)
	author := strings.TrimSpace(meta.Author)
	subject := strings.TrimSpace(meta.Subject)
	category := strings.TrimSpace(meta.Category)
	if title == "" || author == "" || strings.TrimSpace(meta.Type) == "" || subject == "" || category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please provide title, author, type, subject, and category")
	}
	contentType, err := enums.ParseContentType(strings.TrimSpace(meta.Type))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"Invalid content type. Allowed types: ebook, journal, paper, thesis, notes, other")
	}
	access := enums.AccessLevelPublic
	if raw := strings.TrimSpace(meta.AccessLevel); raw != "" {
		if access, err = enums.ParseAccessLevel(raw); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				"Invalid access level. Allowed levels: public, restricted, private")
		}
	}
	language := strings.TrimSpace(meta.Language)
	if language == "" {
		language = "English"
	}
	return &models.Content{
		Title:           title,
		Author:          author,
		Type:            contentType,
		Subject:         subject,
		Category:        category,
		Keywords:        normalizeKeywords(meta.Keywords),
		Tags:            normalizeTags(meta.Tags),
		Description:     trimmed(meta.Description),
		Publisher:       trimmed(meta.Publisher),
		PublicationYear: meta.PublicationYear,
		ISBN:            trimmed(meta.ISBN),
		ISSN:            trimmed(meta.ISSN),
		Language:        language,
		Pages:           meta.Pages,
		IsPublished:     true,
		AccessLevel:     access,
	}, nil
}

func (s *service) checkIdentifier(ctx context.Context, column, label string, value *string) error {
	if value == nil {
		return nil
	}
	exists, err := s.repo.ExistsByIdentifier(ctx, column, *value)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check "+column)
	}
	if exists {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("Content with this %s already exists", label))
	}
	return nil
}

func (s *service) List(ctx context.Context, in ListInput) (*ListResult, error) {
	params := in.Pagination.Normalize()
	filters, err := normalizeFilters(in.Filters)
	if err != nil {
		return nil, err
	}
	items, total, err := s.repo.List(ctx, filters, in.SortBy, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list content")
	}
	return &ListResult{Items: FromModels(items), Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) Search(ctx context.Context, in SearchInput) ([]ContentDTO, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please provide a search query")
	}
	var filters Filters
	if in.Filters != nil {
		filters = Filters{
			Type:     enums.ContentType(in.Filters.Type),
			Category: in.Filters.Category,
			Author:   in.Filters.Author,
			Subject:  in.Filters.Subject,
			Year:     in.Filters.Year,
		}
	}
	filters, err := normalizeFilters(filters)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.Search(ctx, query, filters, in.SortBy, SearchLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search content")
	}
	return FromModels(items), nil
}

// Get returns an item and counts the view.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*ContentDTO, error) {
	ok, err := s.repo.IncrementViews(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count view")
	}
	if !ok {
		return nil, errNotFound()
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	s.metrics.RecordContentEvent(eventView)
	return FromModel(item), nil
}

// Download opens the stored file and records the download against actor.
func (s *service) Download(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID) (*Download, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if !item.IsPublished && !actor.IsStaff() {
		return nil, errNotFound()
	}
	if item.AccessLevel == enums.AccessLevelPrivate && !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Not authorized to download this content")
	}

	body, err := s.store.Open(ctx, item.FileKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "File not found on server")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open file")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.IncrementDownloads(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return gorm.ErrRecordNotFound
		}
		return repo.LogDownload(ctx, &models.ContentDownload{
			ContentID:    id,
			UserID:       actor.UserID,
			DownloadedAt: s.now().UTC(),
		})
	})
	if err != nil {
		closeErr := body.Close()
		if db.IsNotFound(err) {
			return nil, errNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, multierr.Append(err, closeErr), "record download")
	}

	item.Downloads++
	s.metrics.RecordContentEvent(eventDownload)
	return &Download{Content: FromModel(item), Body: body}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateContentRequest) (*ContentDTO, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, mapLookupError(err)
	}

	var patch models.Content
	var columns []string
	setText := func(value *string, column string, dst *string) {
		if value == nil {
			return
		}
		if v := strings.TrimSpace(*value); v != "" {
			*dst = v
			columns = append(columns, column)
		}
	}
	setText(req.Title, "title", &patch.Title)
	setText(req.Author, "author", &patch.Author)
	setText(req.Subject, "subject", &patch.Subject)
	setText(req.Category, "category", &patch.Category)
	if req.Description != nil {
		patch.Description = trimmed(req.Description)
		columns = append(columns, "description")
	}
	if req.Keywords != nil {
		patch.Keywords = normalizeKeywords(req.Keywords)
		columns = append(columns, "keywords")
	}
	if req.Tags != nil {
		patch.Tags = normalizeTags(req.Tags)
		columns = append(columns, "tags")
	}
	if req.AccessLevel != nil {
		if !req.AccessLevel.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				"Invalid access level. Allowed levels: public, restricted, private")
		}
		patch.AccessLevel = *req.AccessLevel
		columns = append(columns, "access_level")
	}
	if req.IsPublished != nil {
		patch.IsPublished = *req.IsPublished
		columns = append(columns, "is_published")
	}

	if len(columns) > 0 {
		if err := s.repo.Update(ctx, id, patch, columns); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update content")
		}
		s.invalidate()
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(item), nil
}

// Delete removes the record first; a stored object left behind is logged.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	var key string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		key = item.FileKey
		_, err = repo.Delete(ctx, id)
		return err
	})
	if err != nil {
		return mapLookupError(err)
	}

	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logCtx := s.logg.WithField(ctx, "key", key)
		s.logg.Error(logCtx, "content.file_delete_failed", err)
	}
	s.invalidate()
	s.metrics.RecordContentEvent(eventDelete)
	return nil
}

func (s *service) Review(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID, req ReviewRequest) (*ContentDTO, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please provide a rating between 1 and 5")
	}

	var item *models.Content
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return mapLookupError(err)
		}
		review := &models.ContentReview{
			ContentID: id,
			UserID:    actor.UserID,
			Rating:    req.Rating,
			Comment:   trimmed(req.Comment),
		}
		if err := repo.AddReview(ctx, review); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add review")
		}
		count, sum, err := repo.RatingStats(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate ratings")
		}
		patch := models.Content{RatingAverage: averageRating(sum, count), RatingCount: int(count)}
		if err := repo.Update(ctx, id, patch, []string{"rating_average", "rating_count"}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rating")
		}
		item, err = repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate()
	s.metrics.RecordContentEvent(eventReview)
	return FromModel(item), nil
}

// StorageInfo reads store usage and record totals concurrently.
func (s *service) StorageInfo(ctx context.Context) (*StorageReport, error) {
	var (
		usage  storage.Usage
		totals Totals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		usage, err = s.store.Usage(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.repo.Totals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage report")
	}

	usedMB := megabytes(usage.Bytes)
	report := &StorageReport{
		TotalSize:     usage.Bytes,
		TotalObjects:  usage.Objects,
		TotalSizeMB:   usedMB,
		QuotaMB:       s.quotaMB,
		TotalFiles:    totals.Files,
		DBTotalSize:   totals.Bytes,
		DBTotalSizeMB: megabytes(totals.Bytes),
	}
	if s.quotaMB > 0 {
		report.RemainingMB = round2(float64(s.quotaMB) - usedMB)
		report.PercentUsed = round2(usedMB / float64(s.quotaMB) * 100)
	}
	return report, nil
}

func (s *service) Trending(ctx context.Context, limit int) ([]ContentDTO, error) {
	return s.cachedTop(ctx, "trending", "-views", limit)
}

func (s *service) Recommended(ctx context.Context, limit int) ([]ContentDTO, error) {
	return s.cachedTop(ctx, "recommended", "-rating", limit)
}

func (s *service) cachedTop(ctx context.Context, name, sortBy string, limit int) ([]ContentDTO, error) {
	limit = topLimit(limit, DefaultTopLimit)
	key := fmt.Sprintf("%s:%d", name, limit)
	if cached := s.hot.Get(key); cached != nil {
		return cached.Value(), nil
	}
	items, err := s.repo.Top(ctx, "", sortBy, sortBy, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+name)
	}
	out := FromModels(items)
	s.hot.Set(key, out, ttlcache.DefaultTTL)
	return out, nil
}

func (s *service) ByCategory(ctx context.Context, category, sortBy string, limit int) ([]ContentDTO, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if strings.TrimSpace(sortBy) == "" {
		sortBy = "-views"
	}
	items, err := s.repo.Top(ctx, category, sortBy, "-views", topLimit(limit, DefaultCategoryLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "browse category")
	}
	return FromModels(items), nil
}

func (s *service) MyDownloads(ctx context.Context, userID uuid.UUID) ([]DownloadDTO, error) {
	entries, err := s.repo.Downloads(ctx, userID, downloadLogLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load downloads")
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ContentID)
	}
	byID, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load downloaded content")
	}

	out := make([]DownloadDTO, 0, len(entries))
	for _, e := range entries {
		dto := DownloadDTO{ContentID: e.ContentID, DownloadedAt: e.DownloadedAt}
		if item, ok := byID[e.ContentID]; ok {
			dto.Content = FromModel(&item)
		}
		out = append(out, dto)
	}
	return out, nil
}

func (s *service) invalidate() {
	s.hot.DeleteAll()
}

func normalizeFilters(f Filters) (Filters, error) {
	if f.Type != "" && !f.Type.IsValid() {
		return Filters{}, pkgerrors.New(pkgerrors.CodeValidation,
			"Invalid content type. Allowed types: ebook, journal, paper, thesis, notes, other")
	}
	f.Category = strings.TrimSpace(f.Category)
	f.Author = strings.TrimSpace(f.Author)
	f.Subject = strings.TrimSpace(f.Subject)
	f.Keyword = strings.TrimSpace(f.Keyword)
	return f, nil
}

func topLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > MaxTopLimit {
		return MaxTopLimit
	}
	return limit
}

// averageRating is sum/count rounded to one decimal place.
func averageRating(sum, count int64) float64 {
	if count == 0 {
		return 0
	}
	return decimal.NewFromInt(sum).Div(decimal.NewFromInt(count)).Round(1).InexactFloat64()
}

func megabytes(b int64) float64 {
	return round2(float64(b) / bytesPerMB)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func mapLookupError(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if db.IsNotFound(err) {
		return errNotFound()
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load content")
}

func errNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Content not found")
}
