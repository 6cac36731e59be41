package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"campusvote/ledger"
	"campusvote/models"
	"campusvote/registry"
	"campusvote/service"
)

type Config struct {
	Port            int
	Difficulty      uint8
	SessionDuration time.Duration
	CandidatesFile  string
	QueueSize       int
}

type CastVoteRequest struct {
	VoterIdentity string `json:"voter_identity"`
	CandidateID   string `json:"candidate_id"`
}

type AddCandidateRequest struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Manifesto  string `json:"manifesto"`
}

type ToggleResponse struct {
	PollOpen bool `json:"poll_open"`
}

type BlockchainResponse struct {
	BlockCount int             `json:"block_count"`
	Blocks     []*models.Block `json:"blocks"`
	IsValid    bool            `json:"is_valid"`
	LastHash   string          `json:"last_hash"`
}

type ResultsResponse struct {
	Report       *service.TallyReport       `json:"report"`
	Verification *service.TallyVerification `json:"verification"`
}

type Server struct {
	votingService  *service.VotingService
	queue          *service.QueueProcessor
	adminTokenHash []byte
}

func main() {
	config := parseFlags()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	server, err := initializeServer(config)
	if err != nil {
		log.Fatalf("Failed to initialize voting service: %v", err)
	}

	server.queue.Start()

	http.HandleFunc("/api/state", server.handleGetState)
	http.HandleFunc("/api/vote", server.handleCastVote)
	http.HandleFunc("/api/results", server.handleGetResults)
	http.HandleFunc("/api/metrics", server.handleGetMetrics)

	// Admin
	http.HandleFunc("/api/admin/toggle", server.handleToggleElection)
	http.HandleFunc("/api/admin/candidates", server.handleCandidates)

	// Chain
	http.HandleFunc("/api/blockchain", server.handleGetBlockchain)
	http.HandleFunc("/api/blockchain/validate", server.handleValidateChain)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	serverChan := make(chan error, 1)
	go func() {
		log.Printf("Starting server on port %d...\n", config.Port)
		serverChan <- http.ListenAndServe(fmt.Sprintf(":%d", config.Port), nil)
	}()

	select {
	case err := <-serverChan:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v\n", sig)
		server.queue.Stop()
		server.votingService.EndElection()
		log.Println("Server shutdown completed")
	}
}

func parseFlags() *Config {
	config := &Config{}

	flag.IntVar(&config.Port, "port", 8080, "Server port")
	flag.DurationVar(&config.SessionDuration, "session", 0, "Polling deadline after opening (0 = none)")
	flag.StringVar(&config.CandidatesFile, "candidates", "", "Path to candidate seed file")
	flag.IntVar(&config.QueueSize, "queue", 64, "Vote queue size")

	var difficultyInt int
	flag.IntVar(&difficultyInt, "difficulty", ledger.DefaultDifficulty, "Mining difficulty (leading zero hex chars)")

	flag.Parse()

	if difficultyInt < 0 || difficultyInt > 8 {
		log.Fatal("Difficulty must be between 0 and 8")
	}
	config.Difficulty = uint8(difficultyInt)

	return config
}

func initializeServer(config *Config) (*Server, error) {
	candidateRegistry, err := registry.New(registry.Config{
		CandidatesFilePath: config.CandidatesFile,
		AutoSave:           config.CandidatesFile != "",
	})
	if err != nil {
		return nil, err
	}

	if err := candidateRegistry.LoadFromFile(); err != nil {
		return nil, fmt.Errorf("failed to load candidate roster: %w", err)
	}

	votingService, err := service.NewVotingService(candidateRegistry, config.Difficulty, config.SessionDuration)
	if err != nil {
		return nil, err
	}

	server := &Server{
		votingService: votingService,
		queue:         service.NewQueueProcessor(votingService, config.QueueSize),
	}

	if token := os.Getenv("ADMIN_TOKEN"); token != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin token: %w", err)
		}
		server.adminTokenHash = hash
	} else {
		log.Println("Warning: ADMIN_TOKEN not set, admin endpoints are unprotected")
	}

	return server, nil
}

func (s *Server) isAdmin(r *http.Request) bool {
	if s.adminTokenHash == nil {
		return true
	}
	token := r.Header.Get("X-Admin-Token")
	return bcrypt.CompareHashAndPassword(s.adminTokenHash, []byte(token)) == nil
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, s.votingService.Status())
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.VoterIdentity == "" || req.CandidateID == "" {
		http.Error(w, "voter_identity and candidate_id are required", http.StatusBadRequest)
		return
	}

	result := <-s.queue.QueueVote(req.VoterIdentity, req.CandidateID)
	if result.Err != nil {
		writeVoteError(w, result.Err)
		return
	}

	writeJSON(w, result.Block)
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, ResultsResponse{
		Report:       s.votingService.Results(),
		Verification: s.votingService.VerifyCount(),
	})
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, s.votingService.Metrics().Snapshot())
}

func (s *Server) handleToggleElection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.isAdmin(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(w, ToggleResponse{PollOpen: s.votingService.ToggleElection()})
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req AddCandidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		candidate, err := s.votingService.AddCandidate(&models.Candidate{
			Name:       req.Name,
			Department: req.Department,
			Manifesto:  req.Manifesto,
		})
		if err != nil {
			writeAdminError(w, err)
			return
		}
		writeJSON(w, candidate)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Candidate id is required", http.StatusBadRequest)
			return
		}

		if err := s.votingService.RemoveCandidate(id); err != nil {
			writeAdminError(w, err)
			return
		}
		writeJSON(w, map[string]bool{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetBlockchain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	blocks := s.votingService.Chain()

	response := BlockchainResponse{
		BlockCount: len(blocks),
		Blocks:     blocks,
		IsValid:    s.votingService.ValidateChain(),
	}
	if len(blocks) > 0 {
		response.LastHash = blocks[len(blocks)-1].Hash
	}

	writeJSON(w, response)
}

func (s *Server) handleValidateChain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]bool{"is_valid": s.votingService.ValidateChain()})
}

func writeVoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPollClosed):
		http.Error(w, "Polling is closed", http.StatusForbidden)
	case errors.Is(err, service.ErrDuplicateVote):
		http.Error(w, "You have already voted", http.StatusConflict)
	case errors.Is(err, service.ErrUnknownCandidate):
		http.Error(w, "Unknown candidate", http.StatusUnprocessableEntity)
	case errors.Is(err, service.ErrQueueFull):
		http.Error(w, "Server busy, try again", http.StatusServiceUnavailable)
	default:
		// Integrity and mining failures are bugs, not user errors.
		log.Printf("Vote processing failed: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPollOpen):
		http.Error(w, "Roster is locked while polling is open", http.StatusConflict)
	case errors.Is(err, registry.ErrCandidateNotFound):
		http.Error(w, "Candidate not found", http.StatusNotFound)
	case errors.Is(err, registry.ErrInvalidCandidate), errors.Is(err, registry.ErrCandidateExists):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("Admin operation failed: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
