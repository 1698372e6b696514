// Minimal end-to-end integration test for the Dalaran API.
package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/mr-tron/base58"
)

var baseURL = getenv("API_URL", "http://localhost:8080/v1")

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Fatalf("keygen: %v", err)
	}
	addr := base58.Encode(pub)

	nonce := challenge(addr)
	token := verify(addr, base58.Encode(ed25519.Sign(priv, []byte(nonce))))

	communityID := createCommunity(token)
	proposalID := createProposal(token, communityID)

	castVote(token, proposalID)
	checkTally(token, proposalID)

	commentID := createComment(token, proposalID)
	checkComments(token, proposalID, commentID)

	fmt.Println("✓ all endpoints passed")
}

// ----------------------------- auth

func challenge(addr string) string {
	var resp struct{ Nonce string }
	doJSON("POST", "/auth/challenge", map[string]any{"address": addr}, &resp, http.StatusOK)
	if resp.Nonce == "" {
		log.Fatal("challenge: empty nonce")
	}
	return resp.Nonce
}

func verify(addr, signature string) string {
	var resp struct{ Token string }
	doJSON("POST", "/auth/verify", map[string]any{
		"address":   addr,
		"signature": signature,
	}, &resp, http.StatusOK)
	if resp.Token == "" {
		log.Fatal("verify: empty token")
	}
	return resp.Token
}

// ----------------------------- governance

func createCommunity(tok string) string {
	var resp struct {
		CommunityID string `json:"communityId"`
	}
	doAuth(tok, "POST", "/communities", map[string]any{
		"name": "smoke-test",
	}, &resp, http.StatusCreated)
	return resp.CommunityID
}

func createProposal(tok, communityID string) string {
	var resp struct {
		ProposalID string `json:"proposalId"`
	}
	doAuth(tok, "POST", "/proposals", map[string]any{
		"communityId": communityID,
		"title":       "smoke-test proposal",
		"kind":        "general",
	}, &resp, http.StatusCreated)
	return resp.ProposalID
}

func castVote(tok, proposalID string) {
	doAuth(tok, "POST", "/votes", map[string]any{
		"proposalId": proposalID,
		"choice":     "yes",
	}, nil, http.StatusOK)
}

func checkTally(tok, proposalID string) {
	var tally struct{ Yes int }
	doAuth(tok, "GET", "/proposals/"+proposalID+"/tally", nil, &tally, http.StatusOK)
	if tally.Yes == 0 {
		log.Fatal("tally: missing yes vote")
	}
}

func createComment(tok, proposalID string) string {
	var resp struct{ ID string }
	doAuth(tok, "POST", "/comments", map[string]any{
		"proposalId": proposalID,
		"body":       "integration-test comment",
	}, &resp, http.StatusCreated)
	return resp.ID
}

func checkComments(tok, proposalID, want string) {
	var resp struct {
		Comments []struct{ ID string }
	}
	doAuth(tok, "GET", "/proposals/"+proposalID+"/comments", nil, &resp, http.StatusOK)
	for _, c := range resp.Comments {
		if c.ID == want {
			return
		}
	}
	log.Fatal("comments: created comment not found")
}

// ----------------------------- helpers

func doAuth(token, method, path string, body, out any, want int) {
	doReq(method, path, token, body, out, want)
}

func doJSON(method, path string, body, out any, want int) {
	doReq(method, path, "", body, out, want)
}

func doReq(method, path, token string, body, out any, want int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s encode: %v", method, path, err)
		}
	}
	req, _ := http.NewRequest(method, baseURL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		log.Fatalf("%s %s: want %d got %d", method, path, want, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
}
