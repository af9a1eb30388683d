package handlers

import "testing"

func TestValidateImageFile(t *testing.T) {
	if _, err := validateImageFile("dish.png", 1024); err != nil {
		t.Fatalf("expected png to be accepted, got %v", err)
	}
	if ext, _ := validateImageFile("dish.JPG", 1024); ext != ".jpg" {
		t.Fatalf("expected lowercased extension, got %q", ext)
	}
	if _, err := validateImageFile("dish.gif", 1024); err == nil {
		t.Fatal("expected gif to be rejected")
	}
	if _, err := validateImageFile("dish", 1024); err == nil {
		t.Fatal("expected missing extension to be rejected")
	}
	if _, err := validateImageFile("dish.png", maxImageSize+1); err == nil {
		t.Fatal("expected oversized file to be rejected")
	}
}

func TestResolveUploadPath(t *testing.T) {
	target, err := resolveUploadPath("uploads/menu/dish.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target != "/app/public/uploads/menu/dish.png" {
		t.Fatalf("unexpected target %q", target)
	}
	if _, err := resolveUploadPath("uploads/../secrets.txt"); err == nil {
		t.Fatal("expected cleaned-out-of-uploads path to be refused")
	}
}

func TestSafeDeleteUploadRefusesForeignPaths(t *testing.T) {
	if err := safeDeleteUpload("../etc/passwd"); err == nil {
		t.Fatal("expected traversal path to be refused")
	}
	if err := safeDeleteUpload("images/dish.png"); err == nil {
		t.Fatal("expected non-upload path to be refused")
	}
	if err := safeDeleteUpload(""); err != nil {
		t.Fatalf("empty path must be a no-op, got %v", err)
	}
	if err := safeDeleteUpload("uploads/menu/missing.png"); err != nil {
		t.Fatalf("missing file must be a no-op, got %v", err)
	}
}
