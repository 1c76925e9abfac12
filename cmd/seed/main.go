package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"math/rand"
	"time"

	"github.com/alphabot-ai/storyshelf/internal/client"
)

var authors = []string{"Ada", "Grace", "Linus", "Barbara", "Ken"}

var stories = []struct {
	title   string
	content string
	cover   color.RGBA
}{
	{"The Lighthouse Keeper", "Every night for forty years she climbed the stairs. Tonight the lamp would not light.", color.RGBA{0x1f, 0x3a, 0x5f, 0xff}},
	{"Seven Minutes on Platform 4", "The train was late, and for once nobody minded.", color.RGBA{0x8c, 0x2f, 0x39, 0xff}},
	{"A Map of the Orchard", "Grandfather drew every tree from memory, including the one that was never planted.", color.RGBA{0x3b, 0x7a, 0x3a, 0xff}},
	{"Salt", "The sea took the village a street at a time.", color.RGBA{0xd9, 0xd4, 0xc7, 0xff}},
	{"Night Shift at the Observatory", "Somebody had been moving the telescope while the staff slept.", color.RGBA{0x0b, 0x0c, 0x2a, 0xff}},
	{"Recipe for Rain", "Her mother's notebook had no ingredients, only weather.", color.RGBA{0x5b, 0x6e, 0x7f, 0xff}},
}

var comments = []string{
	"Beautiful ending.",
	"I read this twice in a row.",
	"The opening line got me.",
	"More please!",
	"This reminded me of my own grandfather.",
	"Quietly devastating.",
	"Would love a sequel.",
	"The imagery here is wonderful.",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Storyshelf server URL")
	covers := flag.Bool("covers", true, "Generate and upload a cover image for each story")
	flag.Parse()

	log.Printf("Seeding %s...\n", *baseURL)
	ctx := context.Background()
	c := client.New(*baseURL)

	var storyIDs []string
	for i, s := range stories {
		author := authors[rand.Intn(len(authors))]

		cover := ""
		if *covers {
			url, err := uploadCover(ctx, c, fmt.Sprintf("cover-%d.png", i+1), s.cover, i%2 == 1)
			if err != nil {
				log.Printf("✗ Failed to upload cover for %q: %v", s.title, err)
			} else {
				cover = url
			}
		}

		story, err := c.CreateStory(ctx, client.NewStory{
			Title:      s.title,
			Content:    s.content,
			CoverImage: cover,
			AuthorName: author,
		})
		if err != nil {
			log.Printf("✗ Failed to post story: %v", err)
			continue
		}
		storyIDs = append(storyIDs, story.ID)
		log.Printf("✓ Posted story %s: %s (by %s)", story.ID, s.title, author)

		// Small delay to spread out createdAt times
		time.Sleep(50 * time.Millisecond)
	}

	total := 0
	for _, storyID := range storyIDs {
		// 1-4 comments per story
		numComments := rand.Intn(4) + 1
		for i := 0; i < numComments; i++ {
			name := authors[rand.Intn(len(authors))]
			comment, err := c.CreateComment(ctx, storyID, client.NewComment{
				Text:          comments[rand.Intn(len(comments))],
				CommenterName: name,
			})
			if err != nil {
				log.Printf("✗ Failed to comment: %v", err)
				continue
			}
			total++
			log.Printf("✓ Comment %s on story %s (by %s)", comment.ID, storyID, name)
		}
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Stories:  %d\n", len(storyIDs))
	fmt.Printf("Comments: %d\n", total)
	fmt.Println("\nView at:", *baseURL+"/api/stories")
}

// uploadCover renders a flat-colour PNG and uploads it through one of the
// two upload paths.
func uploadCover(ctx context.Context, c *client.Client, name string, fill color.RGBA, presigned bool) (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, 320, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	if presigned {
		return c.UploadWithPresignedURL(ctx, name, "image/png", buf.Bytes())
	}
	res, err := c.UploadFile(ctx, name, "image/png", buf.Bytes())
	if err != nil {
		return "", err
	}
	return res.URL, nil
}
