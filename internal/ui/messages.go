package ui

import (
	"reencoder/internal/pipeline"
	"reencoder/internal/progress"
)

type jobUpdateMsg struct {
	U progress.Update
}

type jobLogMsg struct {
	L progress.Log
}

type jobResultMsg struct {
	R progress.Result
}

type batchDoneMsg struct {
	Result pipeline.Result
	Err    error
}
