package sqlinline

const QInsertDescription = `--sql 63d85aed-0161-483b-b989-ce33c0a79a6a
insert into descriptions (id, user_id, job_id, item_index, product_name, category, features, audience, tone,
                          seo_description, emotional_description, short_description, source_image_key, created_at)
values (gen_random_uuid(), $1::uuid, $2::uuid, $3::int, $4::text, nullif($5::text, ''), nullif($6::text, ''),
        nullif($7::text, ''), $8::text, $9::text, $10::text, $11::text, nullif($12::text, ''), now())
returning id::text, created_at;
`

const QSelectJobDescriptions = `--sql 055ebdb3-9dbb-434c-85f5-fbfe559dc9b9
select id::text, user_id::text, coalesce(job_id::text, ''), item_index, product_name,
       coalesce(category, ''), coalesce(features, ''), coalesce(audience, ''), tone,
       seo_description, emotional_description, short_description, coalesce(source_image_key, ''), created_at
from descriptions
where job_id = $1::uuid
  and user_id = $2::uuid
order by item_index asc, created_at asc;
`
