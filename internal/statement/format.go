package statement

import (
	"path/filepath"
	"strings"
)

// Format is the physical shape of an uploaded statement.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatXLS   Format = "xls"
	FormatPDF   Format = "pdf"
	FormatText  Format = "text"
	FormatImage Format = "image"
)

var mimeFormats = map[string]Format{
	"text/csv":                    FormatCSV,
	"application/csv":             FormatCSV,
	"text/comma-separated-values": FormatCSV,
	"application/vnd.ms-excel":    FormatXLS,
	"application/pdf":             FormatPDF,
	"text/plain":                  FormatText,
	"image/png":                   FormatImage,
	"image/jpeg":                  FormatImage,
	"image/jpg":                   FormatImage,
	"image/webp":                  FormatImage,
	"image/heic":                  FormatImage,

	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FormatXLSX,
}

var extensionFormats = map[string]Format{
	".csv":  FormatCSV,
	".xlsx": FormatXLSX,
	".xls":  FormatXLS,
	".pdf":  FormatPDF,
	".txt":  FormatText,
	".png":  FormatImage,
	".jpg":  FormatImage,
	".jpeg": FormatImage,
	".webp": FormatImage,
	".heic": FormatImage,
}

// DetectFormat maps a declared mime type, or failing that the file
// extension, onto a Format.
func DetectFormat(fileType, fileName string) (Format, error) {
	mime := strings.ToLower(strings.TrimSpace(fileType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if f, ok := mimeFormats[mime]; ok {
		return f, nil
	}
	if f, ok := extensionFormats[strings.ToLower(filepath.Ext(fileName))]; ok {
		return f, nil
	}
	return "", &FormatUnsupportedError{FileType: fileType, FileName: fileName}
}

// ImageMIMEType returns the mime type to send with an image statement.
func ImageMIMEType(fileType, fileName string) string {
	mime := strings.ToLower(strings.TrimSpace(fileType))
	if strings.HasPrefix(mime, "image/") {
		if mime == "image/jpg" {
			return "image/jpeg"
		}
		return mime
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
