package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status      string            `json:"status"`
	Service     string            `json:"service"`
	Version     string            `json:"version"`
	Checks      map[string]string `json:"checks,omitempty"`
	FailedCheck string            `json:"failed_check,omitempty"`
}

// HealthCheck returns a health check handler
func HealthCheck(serviceName, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:  "healthy",
			Service: serviceName,
			Version: version,
		})
	}
}

// LivenessCheck reports that the process is up
func LivenessCheck(serviceName, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:  "alive",
			Service: serviceName,
			Version: version,
		})
	}
}

// ReadinessCheck fails with 503 on the first dependency check that errors
func ReadinessCheck(serviceName, version string, checks map[string]func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		for name, check := range checks {
			if err := check(); err != nil {
				c.JSON(http.StatusServiceUnavailable, HealthResponse{
					Status:      "not ready",
					Service:     serviceName,
					Version:     version,
					FailedCheck: name,
					Checks:      map[string]string{name: "unhealthy: " + err.Error()},
				})
				return
			}
		}

		c.JSON(http.StatusOK, HealthResponse{
			Status:  "ready",
			Service: serviceName,
			Version: version,
		})
	}
}
