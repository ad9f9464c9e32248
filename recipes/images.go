package recipes

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"recipeshare/common"
	"recipeshare/utils"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

const (
	maxUploadBytes = 10 << 20
	maxImageSide   = 1024
	imageSubdir    = "recipes"
	uploadsURL     = "/static/uploads/"
)

var ErrInvalidImage = fmt.Errorf("image must be a JPEG, PNG, GIF, BMP or TIFF file: %w", common.ErrValidation)

// UploadImage replaces the recipe photo. The image is fitted into
// maxImageSide x maxImageSide and re-encoded as JPEG.
func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	callerID := utils.GetUserIDFromContext(ctx)
	recipeID := ps.ByName("id")

	if err := h.svc.CanEdit(ctx, callerID, recipeID); err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<10)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		utils.RespondWithServiceError(w, r, ErrInvalidImage)
		return
	}

	url, diskPath, err := h.saveImage(img)
	if err != nil {
		utils.RespondWithServiceError(w, r, err)
		return
	}

	recipe, previous, err := h.svc.SetImage(ctx, callerID, recipeID, url)
	if err != nil {
		h.removeImage(diskPath)
		utils.RespondWithServiceError(w, r, err)
		return
	}
	if previous != "" {
		h.removeImage(h.diskPathFor(previous))
	}
	utils.RespondWithJSON(w, http.StatusOK, recipe)
}

func (h *Handlers) saveImage(img image.Image) (url, diskPath string, err error) {
	dir := filepath.Join(h.uploadDir, imageSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating upload dir: %w", err)
	}

	name := uuid.New().String() + ".jpg"
	diskPath = filepath.Join(dir, name)
	fitted := imaging.Fit(img, maxImageSide, maxImageSide, imaging.Lanczos)
	if err := imaging.Save(fitted, diskPath, imaging.JPEGQuality(85)); err != nil {
		return "", "", fmt.Errorf("saving image: %w", err)
	}
	return path.Join(uploadsURL, imageSubdir, name), diskPath, nil
}

// diskPathFor maps a stored URL back to the file it was served from. URLs
// outside the uploads tree map to "".
func (h *Handlers) diskPathFor(url string) string {
	rel := strings.TrimPrefix(url, uploadsURL)
	if rel == url || strings.Contains(rel, "..") {
		return ""
	}
	return filepath.Join(h.uploadDir, filepath.FromSlash(rel))
}

func (h *Handlers) removeImage(diskPath string) {
	if diskPath == "" {
		return
	}
	if err := os.Remove(diskPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("removing image", "path", diskPath, "error", err)
	}
}
