package main

import "time"

// Each terminal cell stands for cellWidth x cellHeight screen pixels of the
// engine's viewport. The canvas draws two raster rows per cell with half
// blocks, so cellHeight is twice cellWidth to keep pixels square.
const (
	cellWidth  = 8.0
	cellHeight = 16.0
)

const (
	keyZoomStep     = 1.25
	panCells        = 4
	prefetchRadius  = 2
	statusRefresh   = time.Second
	loadTimeout     = 10 * time.Second
	shutdownTimeout = 10 * time.Second
	statusLines     = 1
)

const (
	exportViewSuffix      = ".view.png"
	exportAnnotatedSuffix = ".annotated.png"
	storeDirName          = ".boxmark"
)
