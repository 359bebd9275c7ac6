package router

import (
	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/handler"
	"github.com/zazer0/neuronpedia/internal/middleware"
)

// RegisterUser registers every mutation endpoint that needs a signed-in
// caller. Ownership is not checked here; the handlers and their conditional
// writes enforce it per resource.
func RegisterUser(e *echo.Echo, r *middleware.Resolver,
	ex *handler.ExplanationHandler,
	v *handler.VoteHandler,
	cm *handler.CommentHandler,
	l *handler.ListHandler,
	bm *handler.BookmarkHandler,
	g *handler.GraphHandler,
) {
	u := e.Group("/v1", r.RequireUser())

	u.POST("/explanations", ex.Create)

	u.POST("/explanations/:id/vote", v.Vote)
	u.DELETE("/explanations/:id/vote", v.Unvote)

	u.POST("/comments", cm.Create)
	u.DELETE("/comments/:id", cm.Delete)

	// Lists are readable by anyone; only mutations need the caller.
	e.GET("/v1/lists/:id", l.Get)

	u.POST("/lists", l.Create)
	u.GET("/lists/mine", l.Mine)
	u.DELETE("/lists/:id", l.Delete)
	u.POST("/lists/:id/entries", l.AddEntry)
	u.PATCH("/lists/:id/entries/:entryId", l.UpdateEntry)

	u.POST("/bookmarks", bm.Add)
	u.GET("/bookmarks", bm.Mine)
	u.DELETE("/bookmarks/:id", bm.Delete)

	u.POST("/graphs/signed-put", g.SignedPut)
	u.POST("/graphs/:graphId/subgraphs", g.SaveSubgraph)
	u.DELETE("/subgraphs/:id", g.DeleteSubgraph)
}
