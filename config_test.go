package zipdemographics_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	zipdemographics "github.com/apiverve/zipdemographics-api"
)

var _ = Describe("LoadConfig", func() {
	writeConfig := func(content string) string {
		path := filepath.Join(GinkgoT().TempDir(), "client.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	It("builds a client from a YAML file", func() {
		path := writeConfig(`
api_key: abcdef0123456789abcdef0123456789
max_retries: 2
retry_delay_ms: 250
headers:
  x-trace-id: from-config
`)
		client, err := zipdemographics.NewClientFromConfig(path)
		Expect(err).NotTo(HaveOccurred())
		defer client.Close()

		Expect(client.MaxRetries()).To(Equal(2))
		Expect(client.RetryDelay()).To(Equal(250 * time.Millisecond))
	})

	It("clamps out-of-range file values", func() {
		path := writeConfig(`
api_key: abcdef0123456789abcdef0123456789
max_retries: 10
retry_delay_ms: -5
`)
		client, err := zipdemographics.NewClientFromConfig(path)
		Expect(err).NotTo(HaveOccurred())
		defer client.Close()

		Expect(client.MaxRetries()).To(Equal(3))
		Expect(client.RetryDelay()).To(Equal(time.Duration(0)))
	})

	It("reads the API key from the environment when the file omits it", func() {
		GinkgoT().Setenv("APIVERVE_API_KEY", "fedcba9876543210fedcba9876543210")

		apiKey, _, err := zipdemographics.LoadConfig("")
		Expect(err).NotTo(HaveOccurred())
		Expect(apiKey).To(Equal("fedcba9876543210fedcba9876543210"))
	})

	It("fails on an unreadable file", func() {
		_, _, err := zipdemographics.LoadConfig(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(MatchError(ContainSubstring("read config file")))
	})

	It("rejects a config whose key fails validation", func() {
		path := writeConfig("api_key: short\n")
		_, err := zipdemographics.NewClientFromConfig(path)
		Expect(err).To(MatchError(ContainSubstring("too short")))
	})
})
