package e2e_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flexmod/flexmod/citest/testutil"
	"github.com/flexmod/flexmod/internal/settings"
)

var _ = Describe("Presets", func() {
	var (
		fixture *testutil.ModFixture
		base    string
	)

	BeforeEach(func() {
		fixture = newLampMod()
		base = "/mods/" + fixture.Name
	})

	It("should save, load and delete a preset", func() {
		_, err := client.PatchSettings(ctx, fixture.Name, map[string]any{"Hp": 300})
		Expect(err).NotTo(HaveOccurred())

		resp, err := client.Post(ctx, base+"/presets", map[string]string{"name": "tough"})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.IsSuccess()).To(BeTrue(), resp.String())

		resp, err = client.Post(ctx, base+"/settings/reset", nil)
		Expect(err).NotTo(HaveOccurred())
		ps, err := settings.Decode(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		hp, _ := ps.FinalSettings.Get("Hp")
		Expect(hp).To(Equal(float64(100)))

		resp, err = client.Post(ctx, base+"/presets/tough/load", nil)
		Expect(err).NotTo(HaveOccurred())
		ps, err = settings.Decode(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		hp, _ = ps.FinalSettings.Get("Hp")
		Expect(hp).To(Equal(float64(300)))

		resp, err = client.Get(ctx, base+"/presets")
		Expect(err).NotTo(HaveOccurred())
		var names []string
		Expect(resp.JSON(&names)).To(Succeed())
		Expect(names).To(Equal([]string{"tough"}))

		resp, err = client.Delete(ctx, base+"/presets/tough")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, err = client.Post(ctx, base+"/presets/tough/load", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("should carry the selected value through a block rename", func() {
		_, err := client.PatchSettings(ctx, fixture.Name, map[string]any{"Light": false})
		Expect(err).NotTo(HaveOccurred())

		resp, err := client.Post(ctx, base+"/blocks/Light/rename", map[string]string{"newId": "Lamp"})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.IsSuccess()).To(BeTrue(), resp.String())

		ps, err := client.GetSettings(ctx, fixture.Name)
		Expect(err).NotTo(HaveOccurred())
		lamp, ok := ps.FinalSettings.Get("Lamp")
		Expect(ok).To(BeTrue())
		Expect(lamp).To(Equal(false))
		_, ok = ps.FinalSettings.Get("Light")
		Expect(ok).To(BeFalse())
	})
})
