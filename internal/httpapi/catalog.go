package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/catalog"
	"storefront/internal/location"
	"storefront/internal/model"
	"storefront/internal/money"
)

type productView struct {
	model.Product
	DiscountPercent int64  `json:"discountPercent"`
	DisplayPrice    string `json:"displayPrice"`
	DisplayMRP      string `json:"displayMrp"`
}

func (s *Server) productView(p model.Product) productView {
	return productView{
		Product:         p,
		DiscountPercent: money.DiscountPercent(p.Price, p.MRP),
		DisplayPrice:    money.Format(p.Price, s.currency),
		DisplayMRP:      money.Format(p.MRP, s.currency),
	}
}

func (s *Server) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.Categories)
}

// GET /api/products?category=Abstract&top=4
func (s *Server) listProducts(c *gin.Context) {
	var products []model.Product
	if top := c.Query("top"); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil || n < 0 {
			s.fail(c, fmt.Errorf("%w: top must be a non-negative integer", errBadRequest))
			return
		}
		products = s.catalog.TopRated(n)
	} else {
		products = s.catalog.ByCategory(c.Query("category"))
	}
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, s.productView(p))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) lookupProduct(raw string) (model.Product, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return model.Product{}, fmt.Errorf("%w: product id %q", errBadRequest, raw)
	}
	p, ok := s.catalog.Product(id)
	if !ok {
		return model.Product{}, fmt.Errorf("product %d: %w", id, catalog.ErrProductNotFound)
	}
	return p, nil
}

func (s *Server) getProduct(c *gin.Context) {
	p, err := s.lookupProduct(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.productView(p))
}

func (s *Server) listOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"surfaces": s.catalog.Surfaces,
		"sizes":    s.catalog.Sizes,
		"frames":   s.catalog.Frames,
	})
}

type quoteView struct {
	catalog.Quote
	DisplayPrice     string `json:"displayPrice"`
	DisplayCompareAt string `json:"displayCompareAt"`
}

// GET /api/quote?product=3&size=18x24&surface=framed&frame=black
func (s *Server) quote(c *gin.Context) {
	p, err := s.lookupProduct(c.Query("product"))
	if err != nil {
		s.fail(c, err)
		return
	}
	sel := s.catalog.Select(c.Query("size"), c.Query("surface"), c.Query("frame"))
	q, err := s.catalog.Quote(p.ID, sel)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteView{
		Quote:            q,
		DisplayPrice:     money.Format(q.Price, s.currency),
		DisplayCompareAt: money.Format(q.CompareAt, s.currency),
	})
}

func (s *Server) locationSuggestions(c *gin.Context) {
	out := location.Suggestions(c.Query("q"))
	if out == nil {
		out = []location.Suggestion{}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) detectLocation(c *gin.Context) {
	loc, ok := location.Detect(c.Query("q"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "location not serviceable"})
		return
	}
	c.JSON(http.StatusOK, loc)
}

func (s *Server) resolvePincode(c *gin.Context) {
	p, ok := location.ResolvePincode(c.Param("pincode"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown pincode"})
		return
	}
	c.JSON(http.StatusOK, p)
}
