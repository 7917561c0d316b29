package model

import "mime/multipart"

// DocumentUploadRequest 文档上传请求
type DocumentUploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"` // 文件对象
}

// URLRequest 网页提取请求
type URLRequest struct {
	URL string `json:"url" binding:"required,url,max=2048"` // 网页地址
}
