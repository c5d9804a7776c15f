package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/noel-en-famille/internal/dto"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
	"github.com/yukikurage/noel-en-famille/internal/services"
	"github.com/yukikurage/noel-en-famille/internal/utils"
)

// ChatHandler handles the event chat.
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ListMessages returns one page of messages, oldest first. ?before=<id> pages backwards.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	cursor, ok := utils.GetCursorParams(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid before cursor")
		return
	}

	messages, err := h.chatService.List(event.ID, cursor.Before, cursor.Limit)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": dto.ToMessageDTOs(messages)})
}

// PostMessage posts text and/or images. Accepts JSON or a multipart form.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	actor, event, ok := requestContext(c)
	if !ok {
		return
	}

	var content string
	var images []io.Reader

	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			apierrors.BadRequest(c, "Invalid multipart form")
			return
		}
		if values := form.Value["content"]; len(values) > 0 {
			content = values[0]
		}
		files, err := openAll(form.File["images"])
		defer closeAll(files)
		if err != nil {
			apierrors.BadRequest(c, "Invalid image upload")
			return
		}
		for _, f := range files {
			images = append(images, f)
		}
	} else {
		var req struct {
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
		content = req.Content
	}

	message, err := h.chatService.Post(event.ID, actor, content, images)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMessageDTO(*message))
}

// DeleteMessage removes a message. Author or admin only.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	actor, event, ok := requestContext(c)
	if !ok {
		return
	}

	messageID, ok := utils.ParseIDParam(c, "messageId")
	if !ok {
		apierrors.BadRequest(c, "Invalid message ID")
		return
	}

	if err := h.chatService.Delete(event.ID, messageID, actor); err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}

func openAll(headers []*multipart.FileHeader) ([]multipart.File, error) {
	files := make([]multipart.File, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return files, err
		}
		files = append(files, f)
	}
	return files, nil
}

func closeAll(files []multipart.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrMessageNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrMessageEmpty),
		errors.Is(err, services.ErrMessageTooLong),
		errors.Is(err, services.ErrTooManyMedia):
		apierrors.BadRequest(c, err.Error())
	default:
		if !respondCommonError(c, err) {
			respondInternal(c, err)
		}
	}
}
