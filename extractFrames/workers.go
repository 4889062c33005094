package main

import (
	"fmt"

	paqalign "github.com/brainbox-lab/paqalign/pkg"
)

type WorkerResult struct {
	File       string
	Extraction *paqalign.FrameExtraction
	Err        error
}

func worker(id int, jobs <-chan string, results chan<- WorkerResult,
	params paqalign.ExtractParams, limits paqalign.ReaderLimits) {
	for file := range jobs {
		logger.Info(fmt.Sprintf("Worker %d processing %s", id, file), "workers")
		results <- extractFile(file, params, limits)
	}
}

func extractFile(file string, params paqalign.ExtractParams, limits paqalign.ReaderLimits) (result WorkerResult) {
	result.File = file
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("recovered from panic: %v", r)
		}
	}()

	session, err := paqalign.ReadPaqFile(file, limits)
	if err != nil {
		result.Err = err
		return result
	}
	result.Extraction, result.Err = paqalign.ExtractFrames(session, params)
	return result
}

func sendFilesToWorkers(files []string, jobs chan<- string) {
	for _, file := range files {
		jobs <- file
	}
	close(jobs)
}

// extractAll fans the files out to numWorkers workers and returns the number
// of files that failed.
func extractAll(files []string, params paqalign.ExtractParams, limits paqalign.ReaderLimits, numWorkers int) int {
	if numWorkers < 1 {
		numWorkers = 1
	}
	jobs := make(chan string, len(files))
	results := make(chan WorkerResult, len(files))

	for w := 1; w <= numWorkers; w++ {
		go worker(w, jobs, results, params, limits)
	}
	go sendFilesToWorkers(files, jobs)

	failed := 0
	for range files {
		result := <-results
		if result.Err != nil {
			logger.Error(fmt.Sprintf("Error processing %s: %v", result.File, result.Err))
			failed++
			continue
		}
		logger.Info(fmt.Sprintf("Found PAQ file %s: %d imaging frames, %d rewards",
			result.File, len(result.Extraction.Imaging), len(result.Extraction.Reward)), "main")
	}
	return failed
}
