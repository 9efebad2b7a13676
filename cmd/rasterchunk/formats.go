package main

import (
	"strings"

	"github.com/eak1mov/go-rasterchunk/raster"
)

func deduceFormat(format, filePath string) string {
	if format != "" {
		return format
	}
	if d, err := raster.ForPath("", filePath); err == nil {
		return d.Name()
	}
	return ""
}

func formatList() string {
	return strings.Join(raster.Drivers(), ", ")
}
