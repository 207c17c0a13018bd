package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firestoretut/personstore/internal/person"
	"github.com/firestoretut/personstore/internal/person/service"
)

type personBody struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Age       *int   `json:"age"`
}

func (b personBody) toPerson(field string) (person.Person, error) {
	if b.Age == nil {
		return person.Person{}, &person.ValidationError{Field: field, Reason: "required"}
	}
	p := person.Person{FirstName: b.FirstName, LastName: b.LastName, Age: *b.Age}
	return p, person.Validate(p)
}

type failureBody struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// RegisterPersonRoutes mounts the person API on r.
func RegisterPersonRoutes(r gin.IRouter, svc *service.Service) {
	r.POST("/api/persons", func(c *gin.Context) {
		var req personBody
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p, err := req.toPerson(person.FieldAge)
		if err != nil {
			writeError(c, err)
			return
		}
		id, err := svc.Save(c.Request.Context(), p)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	})

	// GET /api/persons?from=20&to=35 lists persons with from < age < to.
	r.GET("/api/persons", func(c *gin.Context) {
		from, err := person.ParseInt("from", c.Query("from"))
		if err != nil {
			writeError(c, err)
			return
		}
		to, err := person.ParseInt("to", c.Query("to"))
		if err != nil {
			writeError(c, err)
			return
		}
		list, err := svc.QueryByAgeRange(c.Request.Context(), from, to)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.PATCH("/api/persons", func(c *gin.Context) {
		var req struct {
			Criteria *personBody   `json:"criteria"`
			Patch    map[string]any `json:"patch"`
		}
		// numbers in the free-form patch stay json.Number until PatchFromMap
		// converts them, so large ages are never rounded through float64
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		if err := dec.Decode(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Criteria == nil {
			writeError(c, &person.ValidationError{Field: "criteria", Reason: "required"})
			return
		}
		criteria, err := req.Criteria.toPerson("criteria.age")
		if err != nil {
			writeError(c, err)
			return
		}
		patch, err := person.PatchFromMap(req.Patch)
		if err != nil {
			writeError(c, err)
			return
		}
		res, err := svc.UpdateByMatch(c.Request.Context(), criteria, patch)
		if err != nil {
			writeError(c, err)
			return
		}
		writeBatch(c, res)
	})

	// DELETE /api/persons?firstName=..&lastName=..&age=..[&field=..]
	r.DELETE("/api/persons", func(c *gin.Context) {
		criteria, err := person.ParsePerson(c.Query("firstName"), c.Query("lastName"), c.Query("age"))
		if err != nil {
			writeError(c, err)
			return
		}
		var res person.BatchResult
		if field, ok := c.GetQuery("field"); ok {
			c.Header("Deprecation", "true")
			res, err = svc.DeleteFieldByMatch(c.Request.Context(), criteria, field)
		} else {
			res, err = svc.DeleteByMatch(c.Request.Context(), criteria)
		}
		if err != nil {
			writeError(c, err)
			return
		}
		writeBatch(c, res)
	})
}

func writeBatch(c *gin.Context, res person.BatchResult) {
	body := gin.H{"matched": res.Matched, "applied": res.Applied}
	if res.NoMatch() {
		body["message"] = person.NoMatchMessage
		c.JSON(http.StatusOK, body)
		return
	}
	if len(res.Failures) == 0 {
		c.JSON(http.StatusOK, body)
		return
	}
	failures := make([]failureBody, 0, len(res.Failures))
	for _, f := range res.Failures {
		failures = append(failures, failureBody{ID: f.ID, Error: f.Err.Error()})
	}
	body["failures"] = failures
	c.JSON(http.StatusMultiStatus, body)
}

func writeError(c *gin.Context, err error) {
	var verr *person.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case person.IsBackend(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
