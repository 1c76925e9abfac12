// Package httpapp provides the HTTP API for Storyshelf.
//
//	@title			Storyshelf API
//	@version		1.0
//	@description	Publish short stories with cover images and collect comments.
//	@description
//	@description	Every response is an envelope: `{"success": true, "data": ...}` or
//	@description	`{"success": false, "error": "message"}`.
//	@description
//	@description	## Cover images
//	@description	Two ways to attach a cover image to a story:
//	@description
//	@description	```
//	@description	A) POST /api/upload (multipart "file")          -> {url, key}
//	@description	B) POST /api/upload/presigned {fileName, contentType}
//	@description	       -> {uploadUrl, headers, publicUrl}
//	@description	   PUT uploadUrl with headers                    (direct to storage)
//	@description	```
//	@description
//	@description	Then send the returned URL as `coverImage` when creating the story.
//	@description	Only JPEG, PNG and WebP are accepted. A signed URL is valid for five minutes.
//
//	@contact.name	Storyshelf
//	@license.name	MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@tag.name			Stories
//	@tag.description	Publish and browse short stories.
//
//	@tag.name			Comments
//	@tag.description	Reader comments on a story, newest first.
//
//	@tag.name			Uploads
//	@tag.description	Cover image uploads to object storage, through the server or with a signed URL.
package httpapp
