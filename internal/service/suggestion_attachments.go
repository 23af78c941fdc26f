package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"

	"suggestion_backend/internal/model"
	"suggestion_backend/internal/policy"
	"suggestion_backend/internal/util"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadAttachment 提交人在一级审核前为建议补充附件。
// 单个文件不超过 10MB，每条建议最多 5 个附件。
func (s *SuggestionService) UploadAttachment(actor *util.Claims, id uint, originalName, contentType string, size int64, reader io.Reader) (*model.SuggestionAttachment, error) {
	sug, err := s.load(id)
	if err != nil {
		return nil, err
	}

	if !policy.CanEdit(actor.Role, actor.UserID, sug) {
		return nil, util.ForbiddenErr("仅提交人可在一级审核前上传附件（当前状态：%s）", sug.ReviewStatus)
	}
	if size > util.MaxAttachmentSize {
		return nil, util.Validation("附件大小不能超过 10MB")
	}

	count, err := s.Store.CountAttachments(id)
	if err != nil {
		return nil, util.Internal(err)
	}
	if count >= util.MaxAttachmentCount {
		return nil, util.Validation("每条建议最多上传 %d 个附件", util.MaxAttachmentCount)
	}

	storedName := uuid.New().String() + filepath.Ext(originalName)
	if _, err := s.Storage.Upload(context.Background(), storedName, reader, size, contentType); err != nil {
		return nil, util.Internal(err)
	}

	att := &model.SuggestionAttachment{
		SuggestionID: sug.ID,
		StoredName:   storedName,
		OriginalName: originalName,
		MimeType:     contentType,
		Size:         size,
	}
	if err := s.Store.AddAttachment(att); err != nil {
		// 元数据落库失败时回收已上传的文件
		s.Storage.Delete(context.Background(), storedName)
		return nil, util.Internal(err)
	}
	s.invalidate(id)
	return att, nil
}

// OpenAttachment 打开附件内容用于下载
func (s *SuggestionService) OpenAttachment(id, attachmentID uint) (*model.SuggestionAttachment, io.ReadCloser, error) {
	att, err := s.Store.FindAttachment(id, attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.NotFoundErr("附件不存在（id=%d）", attachmentID)
		}
		return nil, nil, util.Internal(err)
	}

	reader, err := s.Storage.Open(context.Background(), att.StoredName)
	if err != nil {
		return nil, nil, util.Internal(err)
	}
	return att, reader, nil
}
