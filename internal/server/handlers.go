package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"grindlog/internal/digest"
	"grindlog/internal/scheduler"
)

const maxRunsLimit = 200

type sendRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Timeframe string `json:"timeframe"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"message": "GrindLog digest service is running",
	})
}

func (s *Server) handleSend(c *gin.Context) {
	var req sendRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body: " + err.Error()})
			return
		}
	}

	start, end, err := s.requestRange(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	ticket, err := s.dispatcher.Submit(start, end)
	if err != nil {
		var rangeErr *digest.InvalidRangeError
		switch {
		case errors.As(err, &rangeErr):
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		case errors.Is(err, scheduler.ErrQueueFull), errors.Is(err, scheduler.ErrStopped):
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Daily digest process has been triggered. Emails will be sent in the background.",
		"ticket":  ticket.ID,
		"range":   gin.H{"startDate": ticket.Start, "endDate": ticket.End},
	})
}

// requestRange accepts explicit dates or a named timeframe; explicit dates win.
func (s *Server) requestRange(req sendRequest) (time.Time, time.Time, error) {
	startRaw := strings.TrimSpace(req.StartDate)
	endRaw := strings.TrimSpace(req.EndDate)
	if startRaw == "" && endRaw == "" {
		return s.resolver.PresetRange(req.Timeframe, s.now())
	}
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, errors.New("startDate and endDate must be provided together")
	}
	start, err := digest.ParseDate(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := digest.ParseDate(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.dispatcher.Status(s.now()))
}

func (s *Server) handleTicket(c *gin.Context) {
	ticket, ok := s.dispatcher.Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "ticket not found"})
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (s *Server) handleRuns(c *gin.Context) {
	if s.runLogPath == "" {
		c.JSON(http.StatusOK, gin.H{"runs": []scheduler.RunRecord{}})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "limit must be a positive integer"})
		return
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}
	runs, err := scheduler.ReadRecentRuns(s.runLogPath, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	if runs == nil {
		runs = []scheduler.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
