package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/SergeSyntax/mock-server/internal/auth"
	"github.com/SergeSyntax/mock-server/internal/dto"
	"github.com/SergeSyntax/mock-server/internal/models"
	"github.com/SergeSyntax/mock-server/internal/services"
	"github.com/SergeSyntax/mock-server/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// ResourceHandler serves the generic CRUD routes over every collection of
// the store.
type ResourceHandler struct {
	store  store.Store
	hasher auth.Hasher
}

func NewResourceHandler(s store.Store, hasher auth.Hasher) *ResourceHandler {
	return &ResourceHandler{store: s, hasher: hasher}
}

func (h *ResourceHandler) List(c *fiber.Ctx) error {
	return h.list(c, param(c, "collection"), func(q store.Query) store.Query { return q })
}

// ListNested serves GET /:parent/:id/:child, the children of one parent.
func (h *ResourceHandler) ListNested(c *fiber.Ctx) error {
	parent, id := param(c, "parent"), param(c, "id")
	if _, err := h.store.Get(c.UserContext(), parent, id); err != nil {
		return h.fail(c, err)
	}
	return h.list(c, param(c, "child"), func(q store.Query) store.Query {
		return q.Where(store.ForeignKey(parent), id)
	})
}

func (h *ResourceHandler) list(c *fiber.Ctx, collection string, scope func(store.Query) store.Query) error {
	values, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return badRequest(c, "Invalid query string")
	}
	q, err := store.ParseQuery(values)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if collection == models.CollectionUsers {
		q = q.Hide("password")
	}

	page, err := h.store.List(c.UserContext(), collection, scope(q))
	if err != nil {
		return h.fail(c, err)
	}

	c.Set("X-Total-Count", strconv.Itoa(page.Total))
	if page.Pagination != nil {
		c.Set(fiber.HeaderLink, linkHeader(c.BaseURL()+c.OriginalURL(), values, page.Pagination))
	}
	return c.JSON(h.present(collection, page.Items...))
}

func (h *ResourceHandler) Get(c *fiber.Ctx) error {
	collection := param(c, "collection")
	rec, err := h.store.Get(c.UserContext(), collection, param(c, "id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.present(collection, rec)[0])
}

func (h *ResourceHandler) Create(c *fiber.Ctx) error {
	return h.create(c, param(c, "collection"), nil)
}

// CreateNested serves POST /:parent/:id/:child, linking the new child to its
// parent through the foreign key.
func (h *ResourceHandler) CreateNested(c *fiber.Ctx) error {
	parent, id := param(c, "parent"), param(c, "id")
	if _, err := h.store.Get(c.UserContext(), parent, id); err != nil {
		return h.fail(c, err)
	}
	return h.create(c, param(c, "child"), func(rec store.Record) {
		rec[store.ForeignKey(parent)] = id
	})
}

func (h *ResourceHandler) create(c *fiber.Ctx, collection string, link func(store.Record)) error {
	rec, err := h.body(c, collection)
	if err != nil {
		return h.reject(c, err)
	}
	if link != nil {
		link(rec)
	}

	created, err := h.store.Insert(c.UserContext(), collection, rec)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.present(collection, created)[0])
}

// Replace keeps the stored createdAt when the body does not carry one.
func (h *ResourceHandler) Replace(c *fiber.Ctx) error {
	ctx := c.UserContext()
	collection, id := param(c, "collection"), param(c, "id")

	rec, err := h.body(c, collection)
	if err != nil {
		return h.reject(c, err)
	}
	if _, ok := rec["createdAt"]; !ok {
		current, err := h.store.Get(ctx, collection, id)
		if err != nil {
			return h.fail(c, err)
		}
		if createdAt, ok := current["createdAt"]; ok {
			rec["createdAt"] = createdAt
		}
	}

	replaced, err := h.store.Replace(ctx, collection, id, rec)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.present(collection, replaced)[0])
}

func (h *ResourceHandler) Patch(c *fiber.Ctx) error {
	collection := param(c, "collection")
	rec, err := h.body(c, collection)
	if err != nil {
		return h.reject(c, err)
	}

	patched, err := h.store.Patch(c.UserContext(), collection, param(c, "id"), rec)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.present(collection, patched)[0])
}

func (h *ResourceHandler) Delete(c *fiber.Ctx) error {
	if err := h.store.Delete(c.UserContext(), param(c, "collection"), param(c, "id")); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{})
}

// body decodes the write body. A plaintext password sent to users is hashed
// before it reaches the store.
func (h *ResourceHandler) body(c *fiber.Ctx, collection string) (store.Record, error) {
	rec, err := parseRecord(c)
	if err != nil {
		return nil, errors.New("request body must be a JSON object")
	}
	if collection != models.CollectionUsers {
		return rec, nil
	}
	if err := services.ValidateUserFields(rec); err != nil {
		return nil, err
	}
	if password, ok := rec["password"].(string); ok {
		hash, err := h.hasher.Hash(password)
		if err != nil {
			return nil, err
		}
		rec["password"] = hash
	}
	return rec, nil
}

// present strips password hashes from user records, including embedded and
// expanded ones.
func (h *ResourceHandler) present(collection string, records ...store.Record) []store.Record {
	for _, rec := range records {
		if collection == models.CollectionUsers {
			delete(rec, "password")
		}
		if user, ok := rec["user"].(map[string]any); ok {
			delete(user, "password")
		}
		if users, ok := rec[models.CollectionUsers].([]any); ok {
			for _, u := range users {
				if m, ok := u.(map[string]any); ok {
					delete(m, "password")
				}
			}
		}
	}
	return records
}

func (h *ResourceHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrUnknownCollection):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Not Found",
		})
	case errors.Is(err, store.ErrDuplicate):
		return badRequest(c, err.Error())
	}
	return err
}

// reject answers a write whose body could not be accepted.
func (h *ResourceHandler) reject(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ValidationErrorResponse{
			Error: true, Message: verr.Error(), Fields: verr.Fields,
		})
	}
	return badRequest(c, err.Error())
}

// param copies a route parameter out of the request buffer, which fasthttp
// reuses once the handler returns.
func param(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Params(key))
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}

// parseRecord decodes the body as a JSON object; an empty body is {}.
func parseRecord(c *fiber.Ctx) (store.Record, error) {
	rec := store.Record{}
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return rec, nil
	}
	if err := c.App().Config().JSONDecoder(body, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.New("body is null")
	}
	return rec, nil
}

// linkHeader renders the first/prev/next/last links of a paginated list.
func linkHeader(rawURL string, values url.Values, p *store.Pagination) string {
	base := rawURL
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	link := func(page int, rel string) string {
		v := url.Values{}
		for k, vals := range values {
			v[k] = vals
		}
		v.Set("_page", strconv.Itoa(page))
		v.Set("_limit", strconv.Itoa(p.Limit))
		return fmt.Sprintf("<%s?%s>; rel=\"%s\"", base, v.Encode(), rel)
	}

	links := []string{link(1, "first")}
	if p.Page > 1 {
		links = append(links, link(p.Page-1, "prev"))
	}
	if p.Page < p.Last {
		links = append(links, link(p.Page+1, "next"))
	}
	links = append(links, link(p.Last, "last"))
	return strings.Join(links, ", ")
}
