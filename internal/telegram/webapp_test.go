package telegram

import "testing"

const sampleURL = "https://dev.goatsbot.xyz/#tgWebAppData=query_id%3DAAH%26user%3D%257B%2522id%2522%253A123456789%252C%2522first_name%2522%253A%2522Ann%2522%257D%26auth_date%3D1714633200%26hash%3Dabc&tgWebAppVersion=7.2&tgWebAppPlatform=android"

func TestExtractInitData(t *testing.T) {
	got, err := ExtractInitData(sampleURL)
	if err != nil {
		t.Fatalf("ExtractInitData: %v", err)
	}
	want := "query_id=AAH&user=%7B%22id%22%3A123456789%2C%22first_name%22%3A%22Ann%22%7D&auth_date=1714633200&hash=abc"
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
	if id := UserID(got); id != 123456789 {
		t.Fatalf("UserID = %d", id)
	}
}

func TestExtractInitDataMissing(t *testing.T) {
	if _, err := ExtractInitData("https://dev.goatsbot.xyz/#tgWebAppVersion=7.2"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ExtractInitData("https://dev.goatsbot.xyz/#tgWebAppData=&x=1"); err == nil {
		t.Fatal("expected error for empty data")
	}
}

func TestUserIDBroken(t *testing.T) {
	if id := UserID("user=not-json"); id != 0 {
		t.Fatalf("UserID = %d, want 0", id)
	}
	if id := UserID("auth_date=1"); id != 0 {
		t.Fatalf("UserID = %d, want 0", id)
	}
}
