package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	cldapi "github.com/cloudinary/cloudinary-go/v2/api"

	"github.com/cleanpath/cleanpath-api/api"
	"github.com/cleanpath/cleanpath-api/config"
)

// garbageImageFolder is where pickup request photos are stored
const garbageImageFolder = "cleanpath/garbage"

// Upload hands out signed parameters so clients can upload garbage photos
// straight to Cloudinary and send back the resulting URLs
type Upload struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
}

type uploadSignature struct {
	CloudName    string `json:"cloudName"`
	APIKey       string `json:"apiKey"`
	Timestamp    string `json:"timestamp"`
	Folder       string `json:"folder"`
	UploadPreset string `json:"uploadPreset,omitempty"`
	Signature    string `json:"signature"`
}

// SignatureHandler signs the upload parameters for the caller
func (u Upload) SignatureHandler(w http.ResponseWriter, r *http.Request) {
	if u.APISecret == "" || u.CloudName == "" {
		config.ErrorStatus("uploads are not configured", http.StatusServiceUnavailable, w, nil)
		return
	}
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("folder", garbageImageFolder)
	if u.UploadPreset != "" {
		params.Set("upload_preset", u.UploadPreset)
	}
	signature, err := cldapi.SignParameters(params, u.APISecret)
	if err != nil {
		config.ErrorStatus("failed to sign upload", http.StatusInternalServerError, w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, uploadSignature{
		CloudName:    u.CloudName,
		APIKey:       u.APIKey,
		Timestamp:    timestamp,
		Folder:       garbageImageFolder,
		UploadPreset: u.UploadPreset,
		Signature:    signature,
	})
}
