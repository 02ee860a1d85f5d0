package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"descriptai/internal/bulk"
	"descriptai/internal/domain"
	"descriptai/internal/middleware"
)

const jobNotFound = "Job not found"

type uploadRequest struct {
	Items     []domain.WorkItem `json:"items"`
	ItemCount int               `json:"itemCount"`
	VoiceID   string            `json:"voiceId"`
}

type uploadResponse struct {
	JobID string      `json:"jobId"`
	Job   *domain.Job `json:"job"`
}

type chunkRequest struct {
	JobID string           `json:"jobId"`
	Item  *domain.WorkItem `json:"item"`
	Index *int             `json:"index"`
}

// Upload opens a text job from the submitted items.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	a.createJob(w, r, domain.JobKindText)
}

// UploadImages opens an image job; the images arrive one per chunk call.
func (a *App) UploadImages(w http.ResponseWriter, r *http.Request) {
	a.createJob(w, r, domain.JobKindImage)
}

func (a *App) createJob(w http.ResponseWriter, r *http.Request, kind domain.JobKind) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	jobReq := bulk.JobRequest{Kind: kind, ItemCount: req.ItemCount, VoiceID: req.VoiceID}
	if kind == domain.JobKindText {
		jobReq.Items = req.Items
		jobReq.ItemCount = 0
	}
	job, err := a.Gate.CreateJob(r.Context(), userID, jobReq)
	if err != nil {
		a.fail(w, r, err, voiceNotFound)
		return
	}
	a.json(w, http.StatusOK, uploadResponse{JobID: job.ID, Job: job})
}

// ProcessChunk generates descriptions for one text item of a job.
func (a *App) ProcessChunk(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	var req chunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.JobID) == "" || req.Item == nil || req.Index == nil {
		a.error(w, http.StatusBadRequest, "bad_request", "Missing jobId, item, or index")
		return
	}
	middleware.AnnotateJob(r.Context(), req.JobID)
	ctx := bulk.WithLocale(r.Context(), middleware.LocaleFromContext(r.Context()))
	res, err := a.Chunks.ProcessItem(ctx, userID, req.JobID, *req.Index, *req.Item)
	if err != nil {
		a.fail(w, r, err, jobNotFound)
		return
	}
	a.json(w, http.StatusOK, res)
}

// ProcessImageChunk analyses one uploaded image and generates descriptions
// from what it shows.
func (a *App) ProcessImageChunk(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	maxBytes := int64(bulk.DefaultMaxImageBytes)
	if a.Config != nil && a.Config.MaxImageBytes > 0 {
		maxBytes = a.Config.MaxImageBytes
	}
	tooLarge := "Image must be under " + strconv.FormatInt(maxBytes>>20, 10) + "MB"

	// Leave room for the other form fields and multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			a.error(w, http.StatusBadRequest, "bad_request", tooLarge)
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	jobID := strings.TrimSpace(r.FormValue("jobId"))
	middleware.AnnotateJob(r.Context(), jobID)
	indexStr := strings.TrimSpace(r.FormValue("index"))
	file, header, err := r.FormFile("image")
	if err != nil || jobID == "" || indexStr == "" {
		a.error(w, http.StatusBadRequest, "bad_request", bulk.MsgMissingImageRequest)
		return
	}
	defer file.Close()
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "index must be an integer")
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read image")
		return
	}
	img := domain.ImageInput{
		Filename: header.Filename,
		MimeType: strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type"))),
		Data:     data,
	}
	ctx := bulk.WithLocale(r.Context(), middleware.LocaleFromContext(r.Context()))
	res, err := a.Chunks.ProcessImageItem(ctx, userID, jobID, index, img)
	if err != nil {
		a.fail(w, r, err, jobNotFound)
		return
	}
	a.json(w, http.StatusOK, res)
}

// LegacyProcess answers the retired single-request bulk endpoint.
func (a *App) LegacyProcess(w http.ResponseWriter, r *http.Request) {
	a.error(w, http.StatusGone, "gone", "This endpoint is deprecated. Use /v1/bulk/process-chunk instead.")
}
