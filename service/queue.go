package service

import (
	"errors"
	"log"
	"sync"
	"time"

	"campusvote/models"
)

// ErrQueueFull is returned when a vote request cannot be enqueued.
var ErrQueueFull = errors.New("vote queue is full")

// QueueProcessor serializes vote requests through a single worker, so
// duplicate checks, mining and appends for different requests can never
// interleave regardless of how many HTTP callers arrive at once.
type QueueProcessor struct {
	votingService *VotingService
	voteCh        chan *VoteRequest
	processingWg  sync.WaitGroup
	shutdownCh    chan struct{}
}

// VoteRequest is a queued vote-casting request.
type VoteRequest struct {
	VoterIdentity string
	CandidateID   string
	ResultCh      chan<- *VoteResult
}

// VoteResult carries the outcome of a processed vote request.
type VoteResult struct {
	Block *models.Block
	Err   error
}

// NewQueueProcessor creates a queue processor with the given buffer size.
func NewQueueProcessor(votingService *VotingService, queueSize int) *QueueProcessor {
	return &QueueProcessor{
		votingService: votingService,
		voteCh:        make(chan *VoteRequest, queueSize),
		shutdownCh:    make(chan struct{}),
	}
}

// Start begins processing queued votes.
func (qp *QueueProcessor) Start() {
	qp.processingWg.Add(1)
	go qp.voteWorker()
}

// Stop drains the worker and shuts the processor down.
func (qp *QueueProcessor) Stop() {
	close(qp.shutdownCh)
	qp.processingWg.Wait()
}

// QueueVote adds a vote request to the processing queue. The returned
// channel receives exactly one result. A full queue fails immediately
// instead of blocking the caller.
func (qp *QueueProcessor) QueueVote(voterIdentity, candidateID string) <-chan *VoteResult {
	resultCh := make(chan *VoteResult, 1)
	select {
	case qp.voteCh <- &VoteRequest{
		VoterIdentity: voterIdentity,
		CandidateID:   candidateID,
		ResultCh:      resultCh,
	}:
		return resultCh
	default:
		log.Printf("Warning: vote queue is full, request dropped")
		resultCh <- &VoteResult{Err: ErrQueueFull}
		close(resultCh)
		return resultCh
	}
}

// voteWorker processes queued votes one at a time.
func (qp *QueueProcessor) voteWorker() {
	defer qp.processingWg.Done()

	for {
		select {
		case <-qp.shutdownCh:
			return
		case req := <-qp.voteCh:
			qp.votingService.Metrics().RecordVoteStart()
			startTime := time.Now()

			block, err := qp.votingService.CastVote(req.VoterIdentity, req.CandidateID)

			qp.votingService.Metrics().RecordVoteEnd(time.Since(startTime))

			req.ResultCh <- &VoteResult{Block: block, Err: err}
			close(req.ResultCh)
		}
	}
}
